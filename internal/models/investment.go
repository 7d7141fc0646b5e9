package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/invest"
)

// InvestmentAccount represents a brokerage/ISA/pension pot
type InvestmentAccount struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"userId" db:"user_id"`
	Name            string     `json:"name" db:"name"`
	AnnualReturnPct float64    `json:"annualReturnPct" db:"annual_return_pct"`
	QuoteSymbol     *string    `json:"quoteSymbol,omitempty" db:"quote_symbol"` // e.g. "VWRL.L"
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// InvestmentTransaction represents a cash movement on an account
type InvestmentTransaction struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"accountId" db:"account_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Date      time.Time       `json:"date" db:"date"`
	Kind      invest.TxKind   `json:"kind" db:"kind"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// ValuationSource records where a valuation figure came from
type ValuationSource string

const (
	ValuationManual ValuationSource = "manual"
	ValuationQuote  ValuationSource = "quote"
)

// InvestmentValuation pins the account value on a date
type InvestmentValuation struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"accountId" db:"account_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Date      time.Time       `json:"date" db:"date"`
	Value     decimal.Decimal `json:"value" db:"value"`
	Source    ValuationSource `json:"source" db:"source"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
