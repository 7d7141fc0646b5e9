package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/adapter"
	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
)

// OrderRepository is the storage surface OrderService needs
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.OnlineOrder) error
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.OnlineOrder, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	Create(ctx context.Context, s *models.Shipment) error
}

// OrderService handles online orders, including ones scanned from email
type OrderService struct {
	orders OrderRepository
	logger *logging.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderRepository, logger *logging.Logger) *OrderService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &OrderService{
		orders: orders,
		logger: logger.WithField("service", "order"),
		now:    time.Now,
	}
}

// CreateOrderInput represents input for manually recording an order
type CreateOrderInput struct {
	UserID    string          `json:"userId"`
	Retailer  string          `json:"retailer"`
	OrderedAt time.Time       `json:"orderedAt"`
	Total     decimal.Decimal `json:"total"`
}

// CreateOrder records an order entered by hand
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.OnlineOrder, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.Retailer == "" {
		return nil, apperrors.NewInvalidParameterError("retailer", "must not be empty")
	}
	if input.Total.IsNegative() {
		return nil, apperrors.NewInvalidParameterError("total", "must not be negative")
	}

	orderedAt := input.OrderedAt
	if orderedAt.IsZero() {
		orderedAt = s.now()
	}

	order := &models.OnlineOrder{
		UserID:    input.UserID,
		Retailer:  input.Retailer,
		OrderedAt: orderedAt,
		Total:     input.Total,
		Source:    models.OrderSourceManual,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.OnlineOrder, error) {
	return s.orders.ListOrders(ctx, userID, limit, offset)
}

// IngestReceiptResult describes what a scanned receipt produced
type IngestReceiptResult struct {
	Order        *models.OnlineOrder `json:"order"`
	NewShipments []*models.Shipment  `json:"newShipments"`
	Skipped      int                 `json:"skipped"` // tracking numbers already known
}

// IngestReceipt turns a scanned email receipt into an order row and creates
// shipments for any tracking numbers not already tracked. Receipts with
// neither a total nor tracking numbers are ignored.
func (s *OrderService) IngestReceipt(ctx context.Context, userID string, receipt *adapter.ExtractedReceipt, receivedAt time.Time) (*IngestReceiptResult, error) {
	if userID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if receipt.Total == nil && len(receipt.Trackings) == 0 {
		return nil, nil
	}

	retailer := receipt.Retailer
	if retailer == "" {
		retailer = "unknown"
	}
	total := decimal.Zero
	if receipt.Total != nil {
		total = *receipt.Total
	}
	orderedAt := receivedAt
	if orderedAt.IsZero() {
		orderedAt = s.now()
	}

	order := &models.OnlineOrder{
		UserID:    userID,
		Retailer:  retailer,
		OrderedAt: orderedAt,
		Total:     total,
		Source:    models.OrderSourceEmail,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order from receipt: %w", err)
	}

	result := &IngestReceiptResult{Order: order}
	for _, tracking := range receipt.Trackings {
		existing, err := s.orders.GetByTrackingNumber(ctx, tracking.TrackingNumber)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		shipment := &models.Shipment{
			UserID:         userID,
			TrackingNumber: tracking.TrackingNumber,
			Carrier:        tracking.Carrier,
			Description:    fmt.Sprintf("%s order", retailer),
			OrderID:        &order.ID,
		}
		if err := s.orders.Create(ctx, shipment); err != nil {
			return nil, fmt.Errorf("failed to create shipment from receipt: %w", err)
		}
		result.NewShipments = append(result.NewShipments, shipment)
	}
	return result, nil
}
