package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/home-ledger/internal/adapter"
	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/quota"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// ShipmentRepository is the storage surface TrackingService needs
type ShipmentRepository interface {
	Create(ctx context.Context, s *models.Shipment) error
	GetByID(ctx context.Context, userID, id string) (*models.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	List(ctx context.Context, userID string, activeOnly bool) ([]*models.Shipment, error)
	ListUndelivered(ctx context.Context) ([]*models.Shipment, error)
	UpdateStatus(ctx context.Context, id string, status types.TrackingStatus, lastEvent *string, expectedDate, deliveredAt *time.Time) error
	Delete(ctx context.Context, userID, id string) error
	AddEvent(ctx context.Context, event *models.ShipmentEvent) (bool, error)
	ListEvents(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error)
}

// TrackingProvider is the third-party client surface TrackingService needs
type TrackingProvider interface {
	Register(ctx context.Context, trackingNumber, carrier string) error
	Fetch(ctx context.Context, trackingNumber, carrier string) (*adapter.TrackingUpdate, error)
}

// TrackingService handles parcel shipments and status refreshes
type TrackingService struct {
	shipments ShipmentRepository
	provider  TrackingProvider
	logger    *logging.Logger
}

// NewTrackingService creates a new tracking service. provider may be nil, in
// which case Refresh is unavailable but CRUD and webhooks still work.
func NewTrackingService(shipments ShipmentRepository, provider TrackingProvider, logger *logging.Logger) *TrackingService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &TrackingService{
		shipments: shipments,
		provider:  provider,
		logger:    logger.WithField("service", "tracking"),
	}
}

// CreateShipmentInput represents input for tracking a parcel
type CreateShipmentInput struct {
	UserID         string  `json:"userId"`
	TrackingNumber string  `json:"trackingNumber"`
	Carrier        string  `json:"carrier"`
	Description    string  `json:"description"`
	OrderID        *string `json:"orderId,omitempty"`
}

// CreateShipment starts tracking a parcel and registers it with the provider
func (s *TrackingService) CreateShipment(ctx context.Context, input *CreateShipmentInput) (*models.Shipment, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	if trackingNumber == "" {
		return nil, apperrors.NewInvalidParameterError("trackingNumber", "must not be empty")
	}
	if input.Carrier == "" {
		return nil, apperrors.NewInvalidParameterError("carrier", "must not be empty")
	}

	shipment := &models.Shipment{
		UserID:         input.UserID,
		TrackingNumber: trackingNumber,
		Carrier:        input.Carrier,
		Description:    input.Description,
		OrderID:        input.OrderID,
	}
	if err := s.shipments.Create(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	// registration failures are not fatal: the next refresh will retry
	if s.provider != nil {
		if err := s.provider.Register(quota.WithInteractive(ctx), trackingNumber, input.Carrier); err != nil {
			s.logger.WithError(err).WithField("trackingNumber", trackingNumber).
				Warn("failed to register tracking with provider")
		}
	}
	return shipment, nil
}

// GetShipment returns one shipment with its event history
func (s *TrackingService) GetShipment(ctx context.Context, userID, id string) (*models.Shipment, []*models.ShipmentEvent, error) {
	shipment, err := s.shipments.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperrors.NewNotFoundError("shipment", id)
		}
		return nil, nil, err
	}
	events, err := s.shipments.ListEvents(ctx, shipment.ID)
	if err != nil {
		return nil, nil, err
	}
	return shipment, events, nil
}

// ListShipments returns the user's shipments, optionally only undelivered
func (s *TrackingService) ListShipments(ctx context.Context, userID string, activeOnly bool) ([]*models.Shipment, error) {
	return s.shipments.List(ctx, userID, activeOnly)
}

// DeleteShipment stops tracking a parcel
func (s *TrackingService) DeleteShipment(ctx context.Context, userID, id string) error {
	if err := s.shipments.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("shipment", id)
		}
		return err
	}
	return nil
}

// Refresh polls the provider for one shipment and applies the update
func (s *TrackingService) Refresh(ctx context.Context, userID, id string) (*models.Shipment, error) {
	if s.provider == nil {
		return nil, apperrors.NewInternalError("tracking provider not configured", nil)
	}
	shipment, err := s.shipments.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("shipment", id)
		}
		return nil, err
	}

	// a user asked for this refresh, so it may spend the quota reserve
	update, err := s.provider.Fetch(quota.WithInteractive(ctx), shipment.TrackingNumber, shipment.Carrier)
	if err != nil {
		return nil, err
	}
	if err := s.applyUpdate(ctx, shipment, update); err != nil {
		return nil, err
	}
	return s.shipments.GetByID(ctx, userID, id)
}

// RefreshAll polls the provider for every undelivered shipment. Used by the
// background sync; one failing shipment does not stop the rest.
func (s *TrackingService) RefreshAll(ctx context.Context) error {
	if s.provider == nil {
		return apperrors.NewInternalError("tracking provider not configured", nil)
	}
	shipments, err := s.shipments.ListUndelivered(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, shipment := range shipments {
		update, err := s.provider.Fetch(ctx, shipment.TrackingNumber, shipment.Carrier)
		if err != nil {
			failed++
			s.logger.WithError(err).WithField("trackingNumber", shipment.TrackingNumber).
				Warn("failed to refresh shipment")
			continue
		}
		if err := s.applyUpdate(ctx, shipment, update); err != nil {
			failed++
			s.logger.WithError(err).WithField("shipmentId", shipment.ID).
				Warn("failed to apply tracking update")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d shipment refreshes failed", failed, len(shipments))
	}
	return nil
}

// WebhookEvent is one event in an inbound provider push
type WebhookEvent struct {
	OccurredAt  time.Time `json:"occurredAt"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

// WebhookPayload is the body of an inbound tracking push
type WebhookPayload struct {
	TrackingNumber string         `json:"trackingNumber"`
	Status         string         `json:"status"`
	LatestEvent    string         `json:"latestEvent,omitempty"`
	ExpectedDate   *time.Time     `json:"expectedDate,omitempty"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	Events         []WebhookEvent `json:"events,omitempty"`
}

// ApplyWebhook applies an inbound push. Unknown tracking numbers return
// ErrNotFound so the handler can decide how much to reveal. Replayed events
// are deduplicated the same way polled events are.
func (s *TrackingService) ApplyWebhook(ctx context.Context, payload *WebhookPayload) error {
	trackingNumber := strings.TrimSpace(payload.TrackingNumber)
	if trackingNumber == "" {
		return apperrors.NewInvalidParameterError("trackingNumber", "must not be empty")
	}

	shipment, err := s.shipments.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("shipment", trackingNumber)
		}
		return err
	}

	update := &adapter.TrackingUpdate{
		TrackingNumber: trackingNumber,
		Status:         adapter.NormalizeStatus(payload.Status),
		LatestEvent:    payload.LatestEvent,
		ExpectedDate:   payload.ExpectedDate,
		DeliveredAt:    payload.DeliveredAt,
	}
	for _, ev := range payload.Events {
		if ev.OccurredAt.IsZero() {
			continue
		}
		update.Events = append(update.Events, adapter.TrackingEventUpdate{
			OccurredAt:  ev.OccurredAt,
			Status:      adapter.NormalizeStatus(ev.Status),
			Description: ev.Description,
			Location:    ev.Location,
		})
	}
	return s.applyUpdate(ctx, shipment, update)
}

// applyUpdate writes the new status and appends events. Event inserts are
// keyed (shipment, occurred-at, status) so replays and overlapping polls do
// not duplicate history.
func (s *TrackingService) applyUpdate(ctx context.Context, shipment *models.Shipment, update *adapter.TrackingUpdate) error {
	var lastEvent *string
	if update.LatestEvent != "" {
		lastEvent = &update.LatestEvent
	} else {
		lastEvent = shipment.LastEvent
	}

	deliveredAt := update.DeliveredAt
	if update.Status == types.StatusDelivered && deliveredAt == nil {
		deliveredAt = shipment.DeliveredAt
	}

	if err := s.shipments.UpdateStatus(ctx, shipment.ID, update.Status, lastEvent, update.ExpectedDate, deliveredAt); err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}

	for _, ev := range update.Events {
		var location *string
		if ev.Location != "" {
			location = &ev.Location
		}
		_, err := s.shipments.AddEvent(ctx, &models.ShipmentEvent{
			ShipmentID:  shipment.ID,
			OccurredAt:  ev.OccurredAt,
			Status:      ev.Status,
			Description: ev.Description,
			Location:    location,
		})
		if err != nil {
			return fmt.Errorf("failed to add shipment event: %w", err)
		}
	}
	return nil
}
