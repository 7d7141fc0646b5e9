package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/types"
)

// CategoryKind distinguishes spending from income categories
type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
)

// Category represents a transaction/bill category
type Category struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"userId" db:"user_id"`
	Name      string       `json:"name" db:"name"`
	Kind      CategoryKind `json:"kind" db:"kind"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
}

// AccountKind distinguishes the kinds of money accounts
type AccountKind string

const (
	AccountCurrent AccountKind = "current"
	AccountSavings AccountKind = "savings"
	AccountCredit  AccountKind = "credit"
)

// Account represents a bank account or card money moves through
type Account struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"userId" db:"user_id"`
	Name      string      `json:"name" db:"name"`
	Kind      AccountKind `json:"kind" db:"kind"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Transaction represents a single ledger entry
type Transaction struct {
	ID          string                     `json:"id" db:"id"`
	UserID      string                     `json:"userId" db:"user_id"`
	Date        time.Time                  `json:"date" db:"date"`
	Amount      decimal.Decimal            `json:"amount" db:"amount"`
	Direction   types.TransactionDirection `json:"direction" db:"direction"`
	CategoryID  *string                    `json:"categoryId,omitempty" db:"category_id"`
	AccountID   *string                    `json:"accountId,omitempty" db:"account_id"`
	BillID      *string                    `json:"billId,omitempty" db:"bill_id"`
	Description string                     `json:"description" db:"description"`
	CreatedAt   time.Time                  `json:"createdAt" db:"created_at"`
}
