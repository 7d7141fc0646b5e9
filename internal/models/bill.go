package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/billing"
	"github.com/home-ledger/internal/types"
)

// Bill represents a recurring outgoing payment
type Bill struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"userId" db:"user_id"`
	Name       string          `json:"name" db:"name"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CategoryID *string         `json:"categoryId,omitempty" db:"category_id"`
	AccountID  *string         `json:"accountId,omitempty" db:"account_id"`
	DueDay     int             `json:"dueDay" db:"due_day"`
	Frequency  types.Frequency `json:"frequency" db:"frequency"`
	StartDate  *time.Time      `json:"startDate,omitempty" db:"start_date"`
	EndDate    *time.Time      `json:"endDate,omitempty" db:"end_date"`
	Active     bool            `json:"active" db:"active"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// Schedule converts the bill into its projection schedule
func (b *Bill) Schedule() billing.Schedule {
	return billing.Schedule{
		DueDay:    b.DueDay,
		Frequency: b.Frequency,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		Active:    b.Active,
	}
}
