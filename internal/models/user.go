// Package models provides data models for the home ledger system.
package models

import (
	"time"

	"github.com/home-ledger/internal/paycycle"
	"github.com/home-ledger/internal/types"
)

// User represents a household member account
type User struct {
	ID        string         `json:"id" db:"id"`
	Email     string         `json:"email" db:"email"`
	Tier      types.UserTier `json:"tier" db:"tier"`
	Pay       *PaySettings   `json:"pay,omitempty" db:"pay_settings"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
}

// PaySettings holds the user's salary schedule, stored as a JSON column
type PaySettings struct {
	PaydayDay  int           `json:"paydayDay"` // nominal day of month, 1-31
	AdjustRule paycycle.Rule `json:"adjustRule"`
}

// GmailConnection holds the stored OAuth grant for receipt scanning
type GmailConnection struct {
	UserID       string    `json:"userId" db:"user_id"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	Email        string    `json:"email" db:"email"`
	ConnectedAt  time.Time `json:"connectedAt" db:"connected_at"`
}
