package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/stock"
)

// ToiletryRepository handles consumable items, usage logs and purchases
type ToiletryRepository struct {
	db *PostgresDB
}

// NewToiletryRepository creates a new toiletry repository
func NewToiletryRepository(db *PostgresDB) *ToiletryRepository {
	return &ToiletryRepository{db: db}
}

// CreateItem creates a new consumable item
func (r *ToiletryRepository) CreateItem(ctx context.Context, item *models.ToiletryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	shippingJSON, err := marshalShipping(item.Shipping)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO toiletry_items (
			id, user_id, name, stock, unit, shipping_profile,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		item.ID,
		item.UserID,
		item.Name,
		item.Stock,
		item.Unit,
		shippingJSON,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create toiletry item: %w", err)
	}

	return nil
}

// GetItem retrieves an item owned by the user
func (r *ToiletryRepository) GetItem(ctx context.Context, userID, id string) (*models.ToiletryItem, error) {
	query := `
		SELECT id, user_id, name, stock, unit, shipping_profile,
			   created_at, updated_at
		FROM toiletry_items
		WHERE id = $1 AND user_id = $2
	`

	var item models.ToiletryItem
	var shippingJSON []byte

	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.Stock,
		&item.Unit,
		&shippingJSON,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("toiletry item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get toiletry item: %w", err)
	}

	if len(shippingJSON) > 0 {
		var profile stock.ShippingProfile
		if err := json.Unmarshal(shippingJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping profile: %w", err)
		}
		item.Shipping = &profile
	}

	return &item, nil
}

// ListItems retrieves all consumable items for a user
func (r *ToiletryRepository) ListItems(ctx context.Context, userID string) ([]*models.ToiletryItem, error) {
	query := `
		SELECT id, user_id, name, stock, unit, shipping_profile,
			   created_at, updated_at
		FROM toiletry_items
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list toiletry items: %w", err)
	}
	defer rows.Close()

	var items []*models.ToiletryItem
	for rows.Next() {
		var item models.ToiletryItem
		var shippingJSON []byte

		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Name,
			&item.Stock,
			&item.Unit,
			&shippingJSON,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan toiletry item: %w", err)
		}

		if len(shippingJSON) > 0 {
			var profile stock.ShippingProfile
			if err := json.Unmarshal(shippingJSON, &profile); err != nil {
				return nil, fmt.Errorf("failed to unmarshal shipping profile: %w", err)
			}
			item.Shipping = &profile
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating toiletry items: %w", err)
	}

	return items, nil
}

// UpdateItem updates an existing item owned by the user
func (r *ToiletryRepository) UpdateItem(ctx context.Context, item *models.ToiletryItem) error {
	item.UpdatedAt = time.Now()

	shippingJSON, err := marshalShipping(item.Shipping)
	if err != nil {
		return err
	}

	query := `
		UPDATE toiletry_items
		SET name = $3, stock = $4, unit = $5, shipping_profile = $6,
			updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		item.ID,
		item.UserID,
		item.Name,
		item.Stock,
		item.Unit,
		shippingJSON,
		item.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update toiletry item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("toiletry item %s: %w", item.ID, ErrNotFound)
	}

	return nil
}

// AdjustStock changes the on-hand quantity of an item by delta
func (r *ToiletryRepository) AdjustStock(ctx context.Context, userID, id string, delta float64) error {
	query := `
		UPDATE toiletry_items
		SET stock = GREATEST(stock + $3, 0), updated_at = $4
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query, id, userID, delta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("toiletry item %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteItem deletes an item and its usage history
func (r *ToiletryRepository) DeleteItem(ctx context.Context, userID, id string) error {
	query := `DELETE FROM toiletry_items WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete toiletry item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("toiletry item %s: %w", id, ErrNotFound)
	}

	return nil
}

// LogUsage records consumption of an item
func (r *ToiletryRepository) LogUsage(ctx context.Context, log *models.ToiletryUsageLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now()
	}

	query := `
		INSERT INTO toiletry_usage_logs (id, item_id, user_id, logged_at, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		log.ID,
		log.ItemID,
		log.UserID,
		log.LoggedAt,
		log.Quantity,
	)

	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}

	return nil
}

// ListUsageSince retrieves usage logs for an item after a cutoff, oldest first
func (r *ToiletryRepository) ListUsageSince(ctx context.Context, userID, itemID string, since time.Time) ([]*models.ToiletryUsageLog, error) {
	query := `
		SELECT id, item_id, user_id, logged_at, quantity
		FROM toiletry_usage_logs
		WHERE item_id = $1 AND user_id = $2 AND logged_at >= $3
		ORDER BY logged_at
	`

	rows, err := r.db.Pool().Query(ctx, query, itemID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ToiletryUsageLog
	for rows.Next() {
		var log models.ToiletryUsageLog
		if err := rows.Scan(&log.ID, &log.ItemID, &log.UserID, &log.LoggedAt, &log.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return logs, nil
}

// AddPurchase records a restock order
func (r *ToiletryRepository) AddPurchase(ctx context.Context, purchase *models.ToiletryPurchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.New().String()
	}
	if purchase.OrderedAt.IsZero() {
		purchase.OrderedAt = time.Now()
	}

	query := `
		INSERT INTO toiletry_purchases (id, item_id, user_id, ordered_at, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		purchase.ID,
		purchase.ItemID,
		purchase.UserID,
		purchase.OrderedAt,
		purchase.Quantity,
		purchase.Price,
	)

	if err != nil {
		return fmt.Errorf("failed to add purchase: %w", err)
	}

	return nil
}

// ListPurchases retrieves purchases for an item, newest first
func (r *ToiletryRepository) ListPurchases(ctx context.Context, userID, itemID string) ([]*models.ToiletryPurchase, error) {
	query := `
		SELECT id, item_id, user_id, ordered_at, quantity, price
		FROM toiletry_purchases
		WHERE item_id = $1 AND user_id = $2
		ORDER BY ordered_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*models.ToiletryPurchase
	for rows.Next() {
		var p models.ToiletryPurchase
		if err := rows.Scan(&p.ID, &p.ItemID, &p.UserID, &p.OrderedAt, &p.Quantity, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	return purchases, nil
}

func marshalShipping(profile *stock.ShippingProfile) ([]byte, error) {
	if profile == nil {
		return nil, nil
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping profile: %w", err)
	}
	return data, nil
}
