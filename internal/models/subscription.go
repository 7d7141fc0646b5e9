package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceKind is the kind of contract being monitored
type ServiceKind string

const (
	ServiceEnergy    ServiceKind = "energy"
	ServiceBroadband ServiceKind = "broadband"
	ServiceMobile    ServiceKind = "mobile"
	ServiceInsurance ServiceKind = "insurance"
	ServiceStreaming ServiceKind = "streaming"
)

// TrackedService represents a subscription or utility contract monitored
// for cheaper alternatives
type TrackedService struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"userId" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	Kind            ServiceKind     `json:"kind" db:"kind"`
	MonthlyCost     decimal.Decimal `json:"monthlyCost" db:"monthly_cost"`
	ContractEndDate *time.Time      `json:"contractEndDate,omitempty" db:"contract_end_date"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// ComparisonResult records the best alternative found for a tracked service
type ComparisonResult struct {
	ID              string          `json:"id" db:"id"`
	ServiceID       string          `json:"serviceId" db:"service_id"`
	UserID          string          `json:"userId" db:"user_id"`
	CheckedAt       time.Time       `json:"checkedAt" db:"checked_at"`
	BestAlternative string          `json:"bestAlternative" db:"best_alternative"`
	BestMonthlyCost decimal.Decimal `json:"bestMonthlyCost" db:"best_monthly_cost"`
	SavingPerMonth  decimal.Decimal `json:"savingPerMonth" db:"saving_per_month"`
}
