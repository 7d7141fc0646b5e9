package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/types"
)

// ShipmentRepository handles parcels, their events and online orders
type ShipmentRepository struct {
	db *PostgresDB
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *PostgresDB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

const shipmentColumns = `
	id, user_id, tracking_number, carrier, description, status,
	last_event, expected_date, delivered_at, order_id, created_at, updated_at
`

// Create creates a new tracked shipment
func (r *ShipmentRepository) Create(ctx context.Context, s *models.Shipment) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = types.StatusPending
	}

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		s.ID,
		s.UserID,
		s.TrackingNumber,
		s.Carrier,
		s.Description,
		s.Status,
		s.LastEvent,
		s.ExpectedDate,
		s.DeliveredAt,
		s.OrderID,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	return nil
}

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var s models.Shipment
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TrackingNumber,
		&s.Carrier,
		&s.Description,
		&s.Status,
		&s.LastEvent,
		&s.ExpectedDate,
		&s.DeliveredAt,
		&s.OrderID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a shipment owned by the user
func (r *ShipmentRepository) GetByID(ctx context.Context, userID, id string) (*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE id = $1 AND user_id = $2
	`

	s, err := scanShipment(r.db.Pool().QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	return s, nil
}

// GetByTrackingNumber retrieves a shipment by tracking number across all users.
// Used by the carrier webhook, which has no user context.
func (r *ShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE tracking_number = $1
	`

	s, err := scanShipment(r.db.Pool().QueryRow(ctx, query, trackingNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipment: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	return s, nil
}

// List retrieves a user's shipments, newest first
func (r *ShipmentRepository) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE user_id = $1
	`
	if activeOnly {
		query += ` AND status NOT IN ('delivered', 'exception')`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shipments: %w", err)
	}

	return shipments, nil
}

// ListUndelivered retrieves every shipment still in flight, for the sync worker
func (r *ShipmentRepository) ListUndelivered(ctx context.Context) ([]*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE status NOT IN ('delivered', 'exception')
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered shipments: %w", err)
	}
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shipments: %w", err)
	}

	return shipments, nil
}

// UpdateStatus applies the latest tracking state to a shipment
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id string, status types.TrackingStatus, lastEvent *string, expectedDate, deliveredAt *time.Time) error {
	if !types.ValidTrackingStatus(status) {
		return fmt.Errorf("invalid tracking status: %s", status)
	}

	query := `
		UPDATE shipments
		SET status = $2, last_event = $3, expected_date = $4,
			delivered_at = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, id, status, lastEvent, expectedDate, deliveredAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}

	return nil
}

// Delete deletes a shipment owned by the user
func (r *ShipmentRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM shipments WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete shipment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}

	return nil
}

// AddEvent records one scan event. The (shipment, occurred-at, status)
// uniqueness constraint makes replays a no-op; it reports whether a new
// row was inserted.
func (r *ShipmentRepository) AddEvent(ctx context.Context, event *models.ShipmentEvent) (bool, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `
		INSERT INTO shipment_events (id, shipment_id, occurred_at, status, description, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (shipment_id, occurred_at, status) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, query,
		event.ID,
		event.ShipmentID,
		event.OccurredAt,
		event.Status,
		event.Description,
		event.Location,
	)

	if err != nil {
		return false, fmt.Errorf("failed to add shipment event: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListEvents retrieves all events for a shipment, oldest first
func (r *ShipmentRepository) ListEvents(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error) {
	query := `
		SELECT id, shipment_id, occurred_at, status, description, location
		FROM shipment_events
		WHERE shipment_id = $1
		ORDER BY occurred_at
	`

	rows, err := r.db.Pool().Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipment events: %w", err)
	}
	defer rows.Close()

	var events []*models.ShipmentEvent
	for rows.Next() {
		var e models.ShipmentEvent
		if err := rows.Scan(&e.ID, &e.ShipmentID, &e.OccurredAt, &e.Status, &e.Description, &e.Location); err != nil {
			return nil, fmt.Errorf("failed to scan shipment event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shipment events: %w", err)
	}

	return events, nil
}

// CreateOrder records an online order
func (r *ShipmentRepository) CreateOrder(ctx context.Context, order *models.OnlineOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Source == "" {
		order.Source = models.OrderSourceManual
	}
	order.CreatedAt = time.Now()

	query := `
		INSERT INTO online_orders (id, user_id, retailer, ordered_at, total, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Retailer,
		order.OrderedAt,
		order.Total,
		order.Source,
		order.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// ListOrders retrieves a user's online orders, newest first
func (r *ShipmentRepository) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.OnlineOrder, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, retailer, ordered_at, total, source, created_at
		FROM online_orders
		WHERE user_id = $1
		ORDER BY ordered_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.OnlineOrder
	for rows.Next() {
		var o models.OnlineOrder
		if err := rows.Scan(&o.ID, &o.UserID, &o.Retailer, &o.OrderedAt, &o.Total, &o.Source, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
