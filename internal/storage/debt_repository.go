package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/models"
)

// DebtRepository handles debt and debt payment persistence
type DebtRepository struct {
	db *PostgresDB
}

// NewDebtRepository creates a new debt repository
func NewDebtRepository(db *PostgresDB) *DebtRepository {
	return &DebtRepository{db: db}
}

// Create creates a new debt
func (r *DebtRepository) Create(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}

	now := time.Now()
	debt.CreatedAt = now
	debt.UpdatedAt = now

	query := `
		INSERT INTO debts (
			id, user_id, name, starting_balance, interest_apr,
			minimum_payment, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		debt.ID,
		debt.UserID,
		debt.Name,
		debt.StartingBalance,
		debt.InterestAPR,
		debt.MinimumPayment,
		debt.CreatedAt,
		debt.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}

	return nil
}

// GetByID retrieves a debt owned by the user
func (r *DebtRepository) GetByID(ctx context.Context, userID, id string) (*models.Debt, error) {
	query := `
		SELECT id, user_id, name, starting_balance, interest_apr,
			   minimum_payment, created_at, updated_at
		FROM debts
		WHERE id = $1 AND user_id = $2
	`

	var debt models.Debt
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&debt.ID,
		&debt.UserID,
		&debt.Name,
		&debt.StartingBalance,
		&debt.InterestAPR,
		&debt.MinimumPayment,
		&debt.CreatedAt,
		&debt.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("debt %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return &debt, nil
}

// List retrieves all debts for a user
func (r *DebtRepository) List(ctx context.Context, userID string) ([]*models.Debt, error) {
	query := `
		SELECT id, user_id, name, starting_balance, interest_apr,
			   minimum_payment, created_at, updated_at
		FROM debts
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		var debt models.Debt
		err := rows.Scan(
			&debt.ID,
			&debt.UserID,
			&debt.Name,
			&debt.StartingBalance,
			&debt.InterestAPR,
			&debt.MinimumPayment,
			&debt.CreatedAt,
			&debt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, &debt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debts: %w", err)
	}

	return debts, nil
}

// Update updates an existing debt owned by the user
func (r *DebtRepository) Update(ctx context.Context, debt *models.Debt) error {
	debt.UpdatedAt = time.Now()

	query := `
		UPDATE debts
		SET name = $3, starting_balance = $4, interest_apr = $5,
			minimum_payment = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		debt.ID,
		debt.UserID,
		debt.Name,
		debt.StartingBalance,
		debt.InterestAPR,
		debt.MinimumPayment,
		debt.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("debt %s: %w", debt.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a debt and its payments
func (r *DebtRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM debts WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}

	return nil
}

// AddPayment records a payment against a debt
func (r *DebtRepository) AddPayment(ctx context.Context, payment *models.DebtPayment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now()

	query := `
		INSERT INTO debt_payments (id, debt_id, user_id, date, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		payment.ID,
		payment.DebtID,
		payment.UserID,
		payment.Date,
		payment.Amount,
		payment.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add debt payment: %w", err)
	}

	return nil
}

// ListPayments retrieves all payments against a debt, oldest first
func (r *DebtRepository) ListPayments(ctx context.Context, userID, debtID string) ([]*models.DebtPayment, error) {
	query := `
		SELECT id, debt_id, user_id, date, amount, created_at
		FROM debt_payments
		WHERE debt_id = $1 AND user_id = $2
		ORDER BY date, created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, debtID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.DebtPayment
	for rows.Next() {
		var p models.DebtPayment
		if err := rows.Scan(&p.ID, &p.DebtID, &p.UserID, &p.Date, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt payment: %w", err)
		}
		payments = append(payments, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debt payments: %w", err)
	}

	return payments, nil
}

// SumPayments totals all payments against a debt
func (r *DebtRepository) SumPayments(ctx context.Context, userID, debtID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM debt_payments
		WHERE debt_id = $1 AND user_id = $2
	`

	err := r.db.Pool().QueryRow(ctx, query, debtID, userID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum debt payments: %w", err)
	}

	return total, nil
}

// DeletePayment removes a recorded payment
func (r *DebtRepository) DeletePayment(ctx context.Context, userID, paymentID string) error {
	query := `DELETE FROM debt_payments WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, paymentID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete debt payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("debt payment %s: %w", paymentID, ErrNotFound)
	}

	return nil
}
