package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/types"
)

// EnergyTariffRepository handles tariff pricing persistence
type EnergyTariffRepository struct {
	db *PostgresDB
}

// NewEnergyTariffRepository creates a new energy tariff repository
func NewEnergyTariffRepository(db *PostgresDB) *EnergyTariffRepository {
	return &EnergyTariffRepository{db: db}
}

// Create records the unit pricing in force for a fuel from a date
func (r *EnergyTariffRepository) Create(ctx context.Context, tariff *models.EnergyTariff) error {
	if tariff.ID == "" {
		tariff.ID = uuid.New().String()
	}
	tariff.CreatedAt = time.Now()

	query := `
		INSERT INTO energy_tariffs (
			id, user_id, fuel, unit_rate_pence, standing_pence,
			valid_from, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tariff.ID,
		tariff.UserID,
		tariff.Fuel,
		tariff.UnitRatePence,
		tariff.StandingPence,
		tariff.ValidFrom,
		tariff.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create energy tariff: %w", err)
	}

	return nil
}

// List retrieves a user's tariffs for a fuel, newest first
func (r *EnergyTariffRepository) List(ctx context.Context, userID string, fuel types.Fuel) ([]*models.EnergyTariff, error) {
	query := `
		SELECT id, user_id, fuel, unit_rate_pence, standing_pence,
			   valid_from, created_at
		FROM energy_tariffs
		WHERE user_id = $1 AND fuel = $2
		ORDER BY valid_from DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, fuel)
	if err != nil {
		return nil, fmt.Errorf("failed to list energy tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []*models.EnergyTariff
	for rows.Next() {
		var t models.EnergyTariff
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Fuel,
			&t.UnitRatePence,
			&t.StandingPence,
			&t.ValidFrom,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan energy tariff: %w", err)
		}
		tariffs = append(tariffs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating energy tariffs: %w", err)
	}

	return tariffs, nil
}

// ActiveAt retrieves the tariff in force for a fuel on a date
func (r *EnergyTariffRepository) ActiveAt(ctx context.Context, userID string, fuel types.Fuel, at time.Time) (*models.EnergyTariff, error) {
	query := `
		SELECT id, user_id, fuel, unit_rate_pence, standing_pence,
			   valid_from, created_at
		FROM energy_tariffs
		WHERE user_id = $1 AND fuel = $2 AND valid_from <= $3
		ORDER BY valid_from DESC
		LIMIT 1
	`

	var t models.EnergyTariff
	err := r.db.Pool().QueryRow(ctx, query, userID, fuel, at).Scan(
		&t.ID,
		&t.UserID,
		&t.Fuel,
		&t.UnitRatePence,
		&t.StandingPence,
		&t.ValidFrom,
		&t.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("energy tariff: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active tariff: %w", err)
	}

	return &t, nil
}

// Delete deletes a tariff owned by the user
func (r *EnergyTariffRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM energy_tariffs WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete energy tariff: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("energy tariff %s: %w", id, ErrNotFound)
	}

	return nil
}
