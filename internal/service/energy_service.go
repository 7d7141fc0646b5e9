package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// EnergyTariffRepository is the Postgres surface EnergyService needs
type EnergyTariffRepository interface {
	Create(ctx context.Context, tariff *models.EnergyTariff) error
	List(ctx context.Context, userID string, fuel types.Fuel) ([]*models.EnergyTariff, error)
	ActiveAt(ctx context.Context, userID string, fuel types.Fuel, at time.Time) (*models.EnergyTariff, error)
	Delete(ctx context.Context, userID, id string) error
}

// EnergyReadingStore is the ClickHouse surface EnergyService needs
type EnergyReadingStore interface {
	InsertBatch(ctx context.Context, readings []*models.EnergyReading) error
	ListReadings(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]*models.EnergyReading, error)
	SumDaily(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]storage.DailyConsumption, error)
}

// EnergyService handles tariffs, reading ingest and cost aggregation
type EnergyService struct {
	tariffs  EnergyTariffRepository
	readings EnergyReadingStore
}

// NewEnergyService creates a new energy service
func NewEnergyService(tariffs EnergyTariffRepository, readings EnergyReadingStore) *EnergyService {
	return &EnergyService{tariffs: tariffs, readings: readings}
}

// CreateTariffInput represents input for recording a tariff change
type CreateTariffInput struct {
	UserID        string          `json:"userId"`
	Fuel          types.Fuel      `json:"fuel"`
	UnitRatePence decimal.Decimal `json:"unitRatePence"`
	StandingPence decimal.Decimal `json:"standingPence"`
	ValidFrom     time.Time       `json:"validFrom"`
}

// CreateTariff records new unit pricing taking effect from a date
func (s *EnergyService) CreateTariff(ctx context.Context, input *CreateTariffInput) (*models.EnergyTariff, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if !types.ValidFuel(input.Fuel) {
		return nil, apperrors.NewInvalidParameterError("fuel", fmt.Sprintf("unknown fuel %q", input.Fuel))
	}
	if input.UnitRatePence.IsNegative() || input.StandingPence.IsNegative() {
		return nil, apperrors.NewInvalidParameterError("rates", "must not be negative")
	}
	if input.ValidFrom.IsZero() {
		return nil, apperrors.NewInvalidParameterError("validFrom", "must be set")
	}

	tariff := &models.EnergyTariff{
		UserID:        input.UserID,
		Fuel:          input.Fuel,
		UnitRatePence: input.UnitRatePence,
		StandingPence: input.StandingPence,
		ValidFrom:     input.ValidFrom,
	}
	if err := s.tariffs.Create(ctx, tariff); err != nil {
		return nil, fmt.Errorf("failed to create tariff: %w", err)
	}
	return tariff, nil
}

// ListTariffs returns the tariff history for a fuel, newest first
func (s *EnergyService) ListTariffs(ctx context.Context, userID string, fuel types.Fuel) ([]*models.EnergyTariff, error) {
	return s.tariffs.List(ctx, userID, fuel)
}

// DeleteTariff removes one tariff row
func (s *EnergyService) DeleteTariff(ctx context.Context, userID, id string) error {
	if err := s.tariffs.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("tariff", id)
		}
		return err
	}
	return nil
}

// IngestReadingInput is one manual or meter-sourced reading
type IngestReadingInput struct {
	Fuel           types.Fuel          `json:"fuel"`
	ReadAt         time.Time           `json:"readAt"`
	ConsumptionKWh float64             `json:"consumptionKwh"`
	Source         types.ReadingSource `json:"source"`
}

// IngestReadings stores a batch of readings. Re-ingesting the same
// (fuel, read-at) intervals is safe: the store deduplicates on that key.
func (s *EnergyService) IngestReadings(ctx context.Context, userID string, inputs []IngestReadingInput) (int, error) {
	if userID == "" {
		return 0, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	readings := make([]*models.EnergyReading, 0, len(inputs))
	for i, in := range inputs {
		if !types.ValidFuel(in.Fuel) {
			return 0, apperrors.NewInvalidParameterError("fuel", fmt.Sprintf("reading %d: unknown fuel %q", i, in.Fuel))
		}
		if in.ReadAt.IsZero() {
			return 0, apperrors.NewInvalidParameterError("readAt", fmt.Sprintf("reading %d: must be set", i))
		}
		if in.ConsumptionKWh < 0 {
			return 0, apperrors.NewInvalidParameterError("consumptionKwh", fmt.Sprintf("reading %d: must not be negative", i))
		}
		source := in.Source
		if source == "" {
			source = types.ReadingSourceManual
		}
		readings = append(readings, &models.EnergyReading{
			UserID:         userID,
			Fuel:           in.Fuel,
			ReadAt:         in.ReadAt.UTC(),
			ConsumptionKWh: in.ConsumptionKWh,
			Source:         source,
		})
	}

	if err := s.readings.InsertBatch(ctx, readings); err != nil {
		return 0, fmt.Errorf("failed to ingest readings: %w", err)
	}
	return len(readings), nil
}

// StoreReadings inserts pre-built readings, used by the meter sync task
func (s *EnergyService) StoreReadings(ctx context.Context, readings []models.EnergyReading) error {
	if len(readings) == 0 {
		return nil
	}
	batch := make([]*models.EnergyReading, len(readings))
	for i := range readings {
		batch[i] = &readings[i]
	}
	return s.readings.InsertBatch(ctx, batch)
}

// ListReadings returns raw readings in a window
func (s *EnergyService) ListReadings(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]*models.EnergyReading, error) {
	if !from.Before(to) {
		return nil, apperrors.NewInvalidParameterError("from", "must be before to")
	}
	return s.readings.ListReadings(ctx, userID, fuel, from, to)
}

// DailyUsage aggregates consumption per calendar day and prices each day
// with the tariff in force on that day. Costs come out in pounds.
func (s *EnergyService) DailyUsage(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]models.DailyUsage, error) {
	if !from.Before(to) {
		return nil, apperrors.NewInvalidParameterError("from", "must be before to")
	}
	if !types.ValidFuel(fuel) {
		return nil, apperrors.NewInvalidParameterError("fuel", fmt.Sprintf("unknown fuel %q", fuel))
	}

	daily, err := s.readings.SumDaily(ctx, userID, fuel, from, to)
	if err != nil {
		return nil, err
	}

	tariffs, err := s.tariffs.List(ctx, userID, fuel)
	if err != nil {
		return nil, err
	}

	usage := make([]models.DailyUsage, 0, len(daily))
	for _, d := range daily {
		usage = append(usage, models.DailyUsage{
			Day:            d.Day,
			Fuel:           fuel,
			ConsumptionKWh: d.ConsumptionKWh,
			CostPounds:     dayCost(d, tariffs),
		})
	}
	return usage, nil
}

// dayCost prices one day: kWh * unit rate + standing charge, pence to pounds.
// tariffs are sorted newest valid-from first; a day before any tariff costs
// zero.
func dayCost(d storage.DailyConsumption, tariffs []*models.EnergyTariff) decimal.Decimal {
	var active *models.EnergyTariff
	for _, t := range tariffs {
		if !t.ValidFrom.After(d.Day) {
			active = t
			break
		}
	}
	if active == nil {
		return decimal.Zero
	}
	kwh := decimal.NewFromFloat(d.ConsumptionKWh)
	pence := kwh.Mul(active.UnitRatePence).Add(active.StandingPence)
	return pence.Div(decimal.NewFromInt(100)).Round(2)
}
