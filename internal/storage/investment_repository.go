package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
)

// InvestmentRepository handles investment accounts, transactions and valuations
type InvestmentRepository struct {
	db *PostgresDB
}

// NewInvestmentRepository creates a new investment repository
func NewInvestmentRepository(db *PostgresDB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// CreateAccount creates a new investment account
func (r *InvestmentRepository) CreateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO investment_accounts (
			id, user_id, name, annual_return_pct, quote_symbol,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.AnnualReturnPct,
		account.QuoteSymbol,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create investment account: %w", err)
	}

	return nil
}

// GetAccount retrieves an investment account owned by the user
func (r *InvestmentRepository) GetAccount(ctx context.Context, userID, id string) (*models.InvestmentAccount, error) {
	query := `
		SELECT id, user_id, name, annual_return_pct, quote_symbol,
			   created_at, updated_at
		FROM investment_accounts
		WHERE id = $1 AND user_id = $2
	`

	var account models.InvestmentAccount
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.AnnualReturnPct,
		&account.QuoteSymbol,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("investment account %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get investment account: %w", err)
	}

	return &account, nil
}

// ListAccounts retrieves all investment accounts for a user
func (r *InvestmentRepository) ListAccounts(ctx context.Context, userID string) ([]*models.InvestmentAccount, error) {
	query := `
		SELECT id, user_id, name, annual_return_pct, quote_symbol,
			   created_at, updated_at
		FROM investment_accounts
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investment accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.InvestmentAccount
	for rows.Next() {
		var account models.InvestmentAccount
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.AnnualReturnPct,
			&account.QuoteSymbol,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment accounts: %w", err)
	}

	return accounts, nil
}

// ListAccountsWithSymbols retrieves every account that has a quote symbol,
// for the quote sync task
func (r *InvestmentRepository) ListAccountsWithSymbols(ctx context.Context) ([]*models.InvestmentAccount, error) {
	query := `
		SELECT id, user_id, name, annual_return_pct, quote_symbol,
			   created_at, updated_at
		FROM investment_accounts
		WHERE quote_symbol IS NOT NULL
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with symbols: %w", err)
	}
	defer rows.Close()

	var accounts []*models.InvestmentAccount
	for rows.Next() {
		var account models.InvestmentAccount
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.AnnualReturnPct,
			&account.QuoteSymbol,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment accounts: %w", err)
	}

	return accounts, nil
}

// UpdateAccount updates an existing investment account owned by the user
func (r *InvestmentRepository) UpdateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	account.UpdatedAt = time.Now()

	query := `
		UPDATE investment_accounts
		SET name = $3, annual_return_pct = $4, quote_symbol = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.AnnualReturnPct,
		account.QuoteSymbol,
		account.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update investment account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("investment account %s: %w", account.ID, ErrNotFound)
	}

	return nil
}

// DeleteAccount deletes an investment account and its history
func (r *InvestmentRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	query := `DELETE FROM investment_accounts WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete investment account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("investment account %s: %w", id, ErrNotFound)
	}

	return nil
}

// AddTransaction records a cash movement on an account
func (r *InvestmentRepository) AddTransaction(ctx context.Context, tx *models.InvestmentTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now()

	query := `
		INSERT INTO investment_transactions (id, account_id, user_id, date, kind, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.UserID,
		tx.Date,
		tx.Kind,
		tx.Amount,
		tx.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add investment transaction: %w", err)
	}

	return nil
}

// ListTransactions retrieves an account's transactions, oldest first
func (r *InvestmentRepository) ListTransactions(ctx context.Context, userID, accountID string) ([]*models.InvestmentTransaction, error) {
	query := `
		SELECT id, account_id, user_id, date, kind, amount, created_at
		FROM investment_transactions
		WHERE account_id = $1 AND user_id = $2
		ORDER BY date, created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investment transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.InvestmentTransaction
	for rows.Next() {
		var tx models.InvestmentTransaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.UserID, &tx.Date, &tx.Kind, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan investment transaction: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment transactions: %w", err)
	}

	return txs, nil
}

// AddValuation pins the account value on a date. One valuation per account
// per day; a later write for the same day replaces the earlier one.
func (r *InvestmentRepository) AddValuation(ctx context.Context, v *models.InvestmentValuation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt = time.Now()

	query := `
		INSERT INTO investment_valuations (id, account_id, user_id, date, value, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, date)
		DO UPDATE SET value = $5, source = $6, created_at = $7
	`

	_, err := r.db.Pool().Exec(ctx, query,
		v.ID,
		v.AccountID,
		v.UserID,
		v.Date,
		v.Value,
		v.Source,
		v.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add valuation: %w", err)
	}

	return nil
}

// ListValuations retrieves an account's valuations, oldest first
func (r *InvestmentRepository) ListValuations(ctx context.Context, userID, accountID string) ([]*models.InvestmentValuation, error) {
	query := `
		SELECT id, account_id, user_id, date, value, source, created_at
		FROM investment_valuations
		WHERE account_id = $1 AND user_id = $2
		ORDER BY date
	`

	rows, err := r.db.Pool().Query(ctx, query, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list valuations: %w", err)
	}
	defer rows.Close()

	var valuations []*models.InvestmentValuation
	for rows.Next() {
		var v models.InvestmentValuation
		if err := rows.Scan(&v.ID, &v.AccountID, &v.UserID, &v.Date, &v.Value, &v.Source, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan valuation: %w", err)
		}
		valuations = append(valuations, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuations: %w", err)
	}

	return valuations, nil
}
