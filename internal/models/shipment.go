package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/types"
)

// Shipment represents a tracked parcel
type Shipment struct {
	ID             string               `json:"id" db:"id"`
	UserID         string               `json:"userId" db:"user_id"`
	TrackingNumber string               `json:"trackingNumber" db:"tracking_number"`
	Carrier        string               `json:"carrier" db:"carrier"`
	Description    string               `json:"description" db:"description"`
	Status         types.TrackingStatus `json:"status" db:"status"`
	LastEvent      *string              `json:"lastEvent,omitempty" db:"last_event"`
	ExpectedDate   *time.Time           `json:"expectedDate,omitempty" db:"expected_date"`
	DeliveredAt    *time.Time           `json:"deliveredAt,omitempty" db:"delivered_at"`
	OrderID        *string              `json:"orderId,omitempty" db:"order_id"`
	CreatedAt      time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time            `json:"updatedAt" db:"updated_at"`
}

// ShipmentEvent represents one scan/status event on a shipment's journey
type ShipmentEvent struct {
	ID          string               `json:"id" db:"id"`
	ShipmentID  string               `json:"shipmentId" db:"shipment_id"`
	OccurredAt  time.Time            `json:"occurredAt" db:"occurred_at"`
	Status      types.TrackingStatus `json:"status" db:"status"`
	Description string               `json:"description" db:"description"`
	Location    *string              `json:"location,omitempty" db:"location"`
}

// OrderSource records how an online order entered the system
type OrderSource string

const (
	OrderSourceManual OrderSource = "manual"
	OrderSourceEmail  OrderSource = "email"
)

// OnlineOrder represents a purchase whose parcels may be tracked
type OnlineOrder struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"userId" db:"user_id"`
	Retailer  string          `json:"retailer" db:"retailer"`
	OrderedAt time.Time       `json:"orderedAt" db:"ordered_at"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Source    OrderSource     `json:"source" db:"source"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
