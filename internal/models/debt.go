package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt represents an outstanding liability being paid down
type Debt struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"userId" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	StartingBalance decimal.Decimal `json:"startingBalance" db:"starting_balance"`
	InterestAPR     decimal.Decimal `json:"interestApr" db:"interest_apr"`
	MinimumPayment  decimal.Decimal `json:"minimumPayment" db:"minimum_payment"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// DebtPayment represents one payment against a debt
type DebtPayment struct {
	ID        string          `json:"id" db:"id"`
	DebtID    string          `json:"debtId" db:"debt_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Date      time.Time       `json:"date" db:"date"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
