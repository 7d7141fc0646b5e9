package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/types"
)

// EnergyReadingRepository stores half-hourly consumption readings in ClickHouse
type EnergyReadingRepository struct {
	db *ClickHouseDB
}

// NewEnergyReadingRepository creates a new energy reading repository
func NewEnergyReadingRepository(db *ClickHouseDB) *EnergyReadingRepository {
	return &EnergyReadingRepository{db: db}
}

// InsertBatch stores readings efficiently. The ReplacingMergeTree table
// deduplicates rows sharing (user, fuel, read_at), so re-pulling an
// overlapping window from the meter API is safe.
func (r *EnergyReadingRepository) InsertBatch(ctx context.Context, readings []*models.EnergyReading) error {
	if len(readings) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO energy_readings (user_id, fuel, read_at, consumption_kwh, source)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, reading := range readings {
		err := batch.Append(
			reading.UserID,
			string(reading.Fuel),
			reading.ReadAt,
			reading.ConsumptionKWh,
			string(reading.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// ListReadings retrieves raw readings in [from, to], oldest first
func (r *EnergyReadingRepository) ListReadings(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]*models.EnergyReading, error) {
	query := `
		SELECT user_id, fuel, read_at, consumption_kwh, source
		FROM energy_readings FINAL
		WHERE user_id = ? AND fuel = ? AND read_at >= ? AND read_at <= ?
		ORDER BY read_at ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, userID, string(fuel), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.EnergyReading
	for rows.Next() {
		var reading models.EnergyReading
		var fuelStr, sourceStr string
		if err := rows.Scan(&reading.UserID, &fuelStr, &reading.ReadAt, &reading.ConsumptionKWh, &sourceStr); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		reading.Fuel = types.Fuel(fuelStr)
		reading.Source = types.ReadingSource(sourceStr)
		readings = append(readings, &reading)
	}

	return readings, nil
}

// DailyConsumption holds the summed consumption for one calendar day
type DailyConsumption struct {
	Day            time.Time
	ConsumptionKWh float64
}

// SumDaily aggregates consumption per calendar day over [from, to]
func (r *EnergyReadingRepository) SumDaily(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]DailyConsumption, error) {
	query := `
		SELECT toStartOfDay(read_at) AS day, sum(consumption_kwh) AS kwh
		FROM energy_readings FINAL
		WHERE user_id = ? AND fuel = ? AND read_at >= ? AND read_at <= ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, userID, string(fuel), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily consumption: %w", err)
	}
	defer rows.Close()

	var days []DailyConsumption
	for rows.Next() {
		var d DailyConsumption
		if err := rows.Scan(&d.Day, &d.ConsumptionKWh); err != nil {
			return nil, fmt.Errorf("failed to scan daily consumption: %w", err)
		}
		days = append(days, d)
	}

	return days, nil
}

// LatestReadingAt returns the timestamp of the newest stored reading,
// used by the meter sync task to resume where it left off.
func (r *EnergyReadingRepository) LatestReadingAt(ctx context.Context, userID string, fuel types.Fuel) (time.Time, error) {
	query := `
		SELECT max(read_at)
		FROM energy_readings
		WHERE user_id = ? AND fuel = ?
	`

	var latest time.Time
	row := r.db.Conn().QueryRow(ctx, query, userID, string(fuel))
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return latest, nil
}
