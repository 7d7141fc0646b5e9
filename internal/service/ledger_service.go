package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// LedgerRepository is the storage surface LedgerService needs
type LedgerRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
	CreateAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// LedgerService handles categories, accounts and transactions
type LedgerService struct {
	ledger LedgerRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledger LedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger}
}

// CreateCategoryInput represents input for creating a category
type CreateCategoryInput struct {
	UserID string              `json:"userId"`
	Name   string              `json:"name"`
	Kind   models.CategoryKind `json:"kind"`
}

// CreateCategory creates a new transaction category
func (s *LedgerService) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*models.Category, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.Name == "" {
		return nil, apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	if input.Kind != models.CategoryExpense && input.Kind != models.CategoryIncome {
		return nil, apperrors.NewInvalidParameterError("kind", fmt.Sprintf("unknown category kind %q", input.Kind))
	}

	category := &models.Category{
		UserID: input.UserID,
		Name:   input.Name,
		Kind:   input.Kind,
	}
	if err := s.ledger.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// ListCategories returns the user's categories
func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	return s.ledger.ListCategories(ctx, userID)
}

// DeleteCategory removes a category
func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.ledger.DeleteCategory(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("category", id)
		}
		return err
	}
	return nil
}

// CreateMoneyAccountInput represents input for creating a money account
type CreateMoneyAccountInput struct {
	UserID string             `json:"userId"`
	Name   string             `json:"name"`
	Kind   models.AccountKind `json:"kind"`
}

// CreateAccount creates a new money account
func (s *LedgerService) CreateAccount(ctx context.Context, input *CreateMoneyAccountInput) (*models.Account, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.Name == "" {
		return nil, apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	switch input.Kind {
	case models.AccountCurrent, models.AccountSavings, models.AccountCredit:
	default:
		return nil, apperrors.NewInvalidParameterError("kind", fmt.Sprintf("unknown account kind %q", input.Kind))
	}

	account := &models.Account{
		UserID: input.UserID,
		Name:   input.Name,
		Kind:   input.Kind,
	}
	if err := s.ledger.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// ListAccounts returns the user's money accounts
func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	return s.ledger.ListAccounts(ctx, userID)
}

// DeleteAccount removes a money account
func (s *LedgerService) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.ledger.DeleteAccount(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("account", id)
		}
		return err
	}
	return nil
}

// CreateTransactionInput represents input for recording a ledger entry
type CreateTransactionInput struct {
	UserID      string                     `json:"userId"`
	Date        time.Time                  `json:"date"`
	Amount      decimal.Decimal            `json:"amount"`
	Direction   types.TransactionDirection `json:"direction"`
	CategoryID  *string                    `json:"categoryId,omitempty"`
	AccountID   *string                    `json:"accountId,omitempty"`
	BillID      *string                    `json:"billId,omitempty"`
	Description string                     `json:"description"`
}

// CreateTransaction records a ledger entry
func (s *LedgerService) CreateTransaction(ctx context.Context, input *CreateTransactionInput) (*models.Transaction, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.Direction != types.DirectionIn && input.Direction != types.DirectionOut {
		return nil, apperrors.NewInvalidParameterError("direction", fmt.Sprintf("unknown direction %q", input.Direction))
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewInvalidParameterError("amount", "must be positive")
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewInvalidParameterError("date", "must be set")
	}

	tx := &models.Transaction{
		UserID:      input.UserID,
		Date:        input.Date,
		Amount:      input.Amount,
		Direction:   input.Direction,
		CategoryID:  input.CategoryID,
		AccountID:   input.AccountID,
		BillID:      input.BillID,
		Description: input.Description,
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// GetTransaction returns one ledger entry
func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	tx, err := s.ledger.GetTransaction(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("transaction", id)
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns ledger entries matching the filter, newest first
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	return s.ledger.ListTransactions(ctx, userID, filter)
}

// DeleteTransaction removes a ledger entry
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.ledger.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("transaction", id)
		}
		return err
	}
	return nil
}
