package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/types"
)

// EnergyTariff represents the unit pricing in force for a fuel from a date
type EnergyTariff struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"userId" db:"user_id"`
	Fuel           types.Fuel      `json:"fuel" db:"fuel"`
	UnitRatePence  decimal.Decimal `json:"unitRatePence" db:"unit_rate_pence"`   // pence per kWh
	StandingPence  decimal.Decimal `json:"standingPence" db:"standing_pence"`    // pence per day
	ValidFrom      time.Time       `json:"validFrom" db:"valid_from"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// EnergyReading represents one half-hourly consumption reading, stored in
// ClickHouse
type EnergyReading struct {
	UserID         string              `json:"userId" ch:"user_id"`
	Fuel           types.Fuel          `json:"fuel" ch:"fuel"`
	ReadAt         time.Time           `json:"readAt" ch:"read_at"`
	ConsumptionKWh float64             `json:"consumptionKwh" ch:"consumption_kwh"`
	Source         types.ReadingSource `json:"source" ch:"source"`
}

// DailyUsage aggregates readings for one calendar day
type DailyUsage struct {
	Day            time.Time       `json:"day"`
	Fuel           types.Fuel      `json:"fuel"`
	ConsumptionKWh float64         `json:"consumptionKwh"`
	CostPounds     decimal.Decimal `json:"costPounds"`
}
