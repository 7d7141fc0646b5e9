package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/types"
)

// LedgerRepository handles categories, accounts and transactions
type LedgerRepository struct {
	db *PostgresDB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *PostgresDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateCategory creates a new category
func (r *LedgerRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	category.CreatedAt = time.Now()

	query := `
		INSERT INTO categories (id, user_id, name, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		category.ID,
		category.UserID,
		category.Name,
		category.Kind,
		category.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// ListCategories retrieves all categories for a user
func (r *LedgerRepository) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	query := `
		SELECT id, user_id, name, kind, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// DeleteCategory deletes a category owned by the user
func (r *LedgerRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	query := `DELETE FROM categories WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}

	return nil
}

// CreateAccount creates a new money account
func (r *LedgerRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()

	query := `
		INSERT INTO accounts (id, user_id, name, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.Kind,
		account.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// ListAccounts retrieves all accounts for a user
func (r *LedgerRepository) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	query := `
		SELECT id, user_id, name, kind, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// DeleteAccount deletes an account owned by the user
func (r *LedgerRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	query := `DELETE FROM accounts WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}

	return nil
}

// CreateTransaction creates a new ledger entry
func (r *LedgerRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now()

	query := `
		INSERT INTO transactions (
			id, user_id, date, amount, direction,
			category_id, account_id, bill_id, description, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Date,
		tx.Amount,
		tx.Direction,
		tx.CategoryID,
		tx.AccountID,
		tx.BillID,
		tx.Description,
		tx.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves one transaction owned by the user
func (r *LedgerRepository) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	query := `
		SELECT id, user_id, date, amount, direction,
			   category_id, account_id, bill_id, description, created_at
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`

	var tx models.Transaction
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Date,
		&tx.Amount,
		&tx.Direction,
		&tx.CategoryID,
		&tx.AccountID,
		&tx.BillID,
		&tx.Description,
		&tx.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// TransactionFilter narrows a transaction listing
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *string
	AccountID  *string
	Direction  *types.TransactionDirection
	Limit      int
	Offset     int
}

// ListTransactions retrieves a user's transactions, newest first
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*models.Transaction, error) {
	var conditions []string
	args := []interface{}{userID}

	conditions = append(conditions, "user_id = $1")

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Direction != nil {
		args = append(args, *filter.Direction)
		conditions = append(conditions, fmt.Sprintf("direction = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf("LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	offsetClause := fmt.Sprintf("OFFSET $%d", len(args))

	query := fmt.Sprintf(`
		SELECT id, user_id, date, amount, direction,
			   category_id, account_id, bill_id, description, created_at
		FROM transactions
		WHERE %s
		ORDER BY date DESC, created_at DESC
		%s %s
	`, strings.Join(conditions, " AND "), limitClause, offsetClause)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Date,
			&tx.Amount,
			&tx.Direction,
			&tx.CategoryID,
			&tx.AccountID,
			&tx.BillID,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// DeleteTransaction deletes a transaction owned by the user
func (r *LedgerRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	return nil
}

// CategoryTotal is the spend/income total for one category in a window
type CategoryTotal struct {
	CategoryID *string         `json:"categoryId"`
	Direction  types.TransactionDirection `json:"direction"`
	Total      decimal.Decimal `json:"total"`
}

// SumByCategory totals a user's transactions per category and direction
// within [from, to].
func (r *LedgerRepository) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]*CategoryTotal, error) {
	query := `
		SELECT category_id, direction, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY category_id, direction
		ORDER BY direction, category_id
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	var totals []*CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.CategoryID, &t.Direction, &t.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	return totals, nil
}

// SumByDirection totals a user's transactions per direction within [from, to]
func (r *LedgerRepository) SumByDirection(ctx context.Context, userID string, from, to time.Time) (in, out decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'in'), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = 'out'), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
	`

	err = r.db.Pool().QueryRow(ctx, query, userID, from, to).Scan(&in, &out)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return in, out, nil
}
