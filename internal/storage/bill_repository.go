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

// BillRepository handles recurring bill persistence
type BillRepository struct {
	db *PostgresDB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *PostgresDB) *BillRepository {
	return &BillRepository{db: db}
}

const billColumns = `
	id, user_id, name, amount, category_id, account_id,
	due_day, frequency, start_date, end_date, active, created_at, updated_at
`

// Create creates a new bill
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}

	now := time.Now()
	bill.CreatedAt = now
	bill.UpdatedAt = now

	if !types.ValidFrequency(bill.Frequency) {
		return fmt.Errorf("invalid frequency: %s", bill.Frequency)
	}

	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		bill.ID,
		bill.UserID,
		bill.Name,
		bill.Amount,
		bill.CategoryID,
		bill.AccountID,
		bill.DueDay,
		bill.Frequency,
		bill.StartDate,
		bill.EndDate,
		bill.Active,
		bill.CreatedAt,
		bill.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill owned by the user
func (r *BillRepository) GetByID(ctx context.Context, userID, id string) (*models.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE id = $1 AND user_id = $2
	`

	var bill models.Bill
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&bill.ID,
		&bill.UserID,
		&bill.Name,
		&bill.Amount,
		&bill.CategoryID,
		&bill.AccountID,
		&bill.DueDay,
		&bill.Frequency,
		&bill.StartDate,
		&bill.EndDate,
		&bill.Active,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bill %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return &bill, nil
}

// List retrieves a user's bills, optionally restricted to active ones
func (r *BillRepository) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE user_id = $1
	`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY due_day, name`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		var bill models.Bill
		err := rows.Scan(
			&bill.ID,
			&bill.UserID,
			&bill.Name,
			&bill.Amount,
			&bill.CategoryID,
			&bill.AccountID,
			&bill.DueDay,
			&bill.Frequency,
			&bill.StartDate,
			&bill.EndDate,
			&bill.Active,
			&bill.CreatedAt,
			&bill.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, &bill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}

	return bills, nil
}

// Update updates an existing bill owned by the user
func (r *BillRepository) Update(ctx context.Context, bill *models.Bill) error {
	if !types.ValidFrequency(bill.Frequency) {
		return fmt.Errorf("invalid frequency: %s", bill.Frequency)
	}

	bill.UpdatedAt = time.Now()

	query := `
		UPDATE bills
		SET name = $3, amount = $4, category_id = $5, account_id = $6,
			due_day = $7, frequency = $8, start_date = $9, end_date = $10,
			active = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		bill.ID,
		bill.UserID,
		bill.Name,
		bill.Amount,
		bill.CategoryID,
		bill.AccountID,
		bill.DueDay,
		bill.Frequency,
		bill.StartDate,
		bill.EndDate,
		bill.Active,
		bill.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("bill %s: %w", bill.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a bill owned by the user
func (r *BillRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM bills WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("bill %s: %w", id, ErrNotFound)
	}

	return nil
}
