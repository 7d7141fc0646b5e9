// Package types provides common type definitions for the home ledger system.
package types

// UserTier represents the service tier level
type UserTier string

const (
	// TierFree represents the free service tier with limited features
	TierFree UserTier = "free"
	// TierPaid represents the paid service tier with full features
	TierPaid UserTier = "paid"
)

// TransactionDirection represents whether a ledger transaction is money in or money out
type TransactionDirection string

const (
	// DirectionIn represents incoming money (salary, refund, dividend)
	DirectionIn TransactionDirection = "in"
	// DirectionOut represents outgoing money (spending, bill payment)
	DirectionOut TransactionDirection = "out"
)

// Frequency represents how often a bill recurs
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// TrackingStatus represents the normalized state of a tracked parcel.
// Provider-specific vocabularies are mapped into this fixed set; anything
// unmappable becomes StatusUnknown.
type TrackingStatus string

const (
	StatusPending        TrackingStatus = "pending"
	StatusInTransit      TrackingStatus = "in_transit"
	StatusOutForDelivery TrackingStatus = "out_for_delivery"
	StatusDelivered      TrackingStatus = "delivered"
	StatusException      TrackingStatus = "exception"
	StatusUnknown        TrackingStatus = "unknown"
)

// ReorderStatus classifies how urgently a consumable needs reordering
type ReorderStatus string

const (
	// ReorderNoData means there is not enough usage history to forecast
	ReorderNoData ReorderStatus = "no_data"
	// ReorderPlenty means the order-by date is more than a week away
	ReorderPlenty ReorderStatus = "plenty"
	// ReorderSoon means the order-by date falls within the next 7 days
	ReorderSoon ReorderStatus = "reorder_soon"
	// ReorderNow means today is the last safe day to order
	ReorderNow ReorderStatus = "order_now"
	// ReorderOverdue means the last safe order date has already passed
	ReorderOverdue ReorderStatus = "overdue"
)

// ConfidenceTier grades a usage-rate estimate by sample count
type ConfidenceTier string

const (
	ConfidenceNone   ConfidenceTier = "none"
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// Fuel represents an energy fuel type
type Fuel string

const (
	FuelElectricity Fuel = "electricity"
	FuelGas         Fuel = "gas"
)

// ReadingSource represents where an energy reading came from
type ReadingSource string

const (
	ReadingSourceSmartMeter ReadingSource = "smart_meter"
	ReadingSourceManual     ReadingSource = "manual"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ValidFrequency reports whether f is one of the supported bill frequencies
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return true
	}
	return false
}

// ValidFuel reports whether f is a supported fuel
func ValidFuel(f Fuel) bool {
	return f == FuelElectricity || f == FuelGas
}

// ValidTrackingStatus reports whether s is a member of the normalized set
func ValidTrackingStatus(s TrackingStatus) bool {
	switch s {
	case StatusPending, StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusException, StatusUnknown:
		return true
	}
	return false
}
