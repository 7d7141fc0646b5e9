package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/stock"
)

// ToiletryItem represents a consumable whose stock is forecast
type ToiletryItem struct {
	ID        string                 `json:"id" db:"id"`
	UserID    string                 `json:"userId" db:"user_id"`
	Name      string                 `json:"name" db:"name"`
	Stock     float64                `json:"stock" db:"stock"`
	Unit      string                 `json:"unit" db:"unit"` // e.g. "rolls", "ml", "washes"
	Shipping  *stock.ShippingProfile `json:"shipping,omitempty" db:"shipping_profile"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time              `json:"updatedAt" db:"updated_at"`
}

// ToiletryUsageLog records consumption of an item
type ToiletryUsageLog struct {
	ID       string    `json:"id" db:"id"`
	ItemID   string    `json:"itemId" db:"item_id"`
	UserID   string    `json:"userId" db:"user_id"`
	LoggedAt time.Time `json:"loggedAt" db:"logged_at"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// ToiletryPurchase records a restock order
type ToiletryPurchase struct {
	ID        string          `json:"id" db:"id"`
	ItemID    string          `json:"itemId" db:"item_id"`
	UserID    string          `json:"userId" db:"user_id"`
	OrderedAt time.Time       `json:"orderedAt" db:"ordered_at"`
	Quantity  float64         `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}
