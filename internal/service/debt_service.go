package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
)

// DebtRepository is the storage surface DebtService needs
type DebtRepository interface {
	Create(ctx context.Context, debt *models.Debt) error
	GetByID(ctx context.Context, userID, id string) (*models.Debt, error)
	List(ctx context.Context, userID string) ([]*models.Debt, error)
	Update(ctx context.Context, debt *models.Debt) error
	Delete(ctx context.Context, userID, id string) error
	AddPayment(ctx context.Context, payment *models.DebtPayment) error
	ListPayments(ctx context.Context, userID, debtID string) ([]*models.DebtPayment, error)
	SumPayments(ctx context.Context, userID, debtID string) (decimal.Decimal, error)
	DeletePayment(ctx context.Context, userID, paymentID string) error
}

// DebtService handles debts, payments and payoff ordering
type DebtService struct {
	debts DebtRepository
}

// NewDebtService creates a new debt service
func NewDebtService(debts DebtRepository) *DebtService {
	return &DebtService{debts: debts}
}

// CreateDebtInput represents input for creating a debt
type CreateDebtInput struct {
	UserID          string          `json:"userId"`
	Name            string          `json:"name"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	InterestAPR     decimal.Decimal `json:"interestApr"`
	MinimumPayment  decimal.Decimal `json:"minimumPayment"`
}

func (in *CreateDebtInput) validate() error {
	if in.UserID == "" {
		return apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if in.Name == "" {
		return apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	if in.StartingBalance.IsNegative() {
		return apperrors.NewInvalidParameterError("startingBalance", "must not be negative")
	}
	if in.InterestAPR.IsNegative() {
		return apperrors.NewInvalidParameterError("interestApr", "must not be negative")
	}
	if in.MinimumPayment.IsNegative() {
		return apperrors.NewInvalidParameterError("minimumPayment", "must not be negative")
	}
	return nil
}

// CreateDebt creates a new debt
func (s *DebtService) CreateDebt(ctx context.Context, input *CreateDebtInput) (*models.Debt, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	debt := &models.Debt{
		UserID:          input.UserID,
		Name:            input.Name,
		StartingBalance: input.StartingBalance,
		InterestAPR:     input.InterestAPR,
		MinimumPayment:  input.MinimumPayment,
	}
	if err := s.debts.Create(ctx, debt); err != nil {
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}
	return debt, nil
}

// DebtResult is a debt together with its computed balance
type DebtResult struct {
	models.Debt
	PaidTotal decimal.Decimal `json:"paidTotal"`
	Balance   decimal.Decimal `json:"balance"`
}

// GetDebt returns one debt with its current balance
func (s *DebtService) GetDebt(ctx context.Context, userID, id string) (*DebtResult, error) {
	debt, err := s.debts.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("debt", id)
		}
		return nil, err
	}
	return s.withBalance(ctx, debt)
}

// ListDebts returns all debts with balances, smallest balance first. A debt
// never goes below zero even when payments exceed the starting balance.
func (s *DebtService) ListDebts(ctx context.Context, userID string) ([]*DebtResult, error) {
	debts, err := s.debts.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]*DebtResult, 0, len(debts))
	for _, debt := range debts {
		result, err := s.withBalance(ctx, debt)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	// snowball ordering: smallest balance first
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Balance.LessThan(results[j].Balance)
	})
	return results, nil
}

// UpdateDebtInput carries the mutable debt fields
type UpdateDebtInput struct {
	Name            string          `json:"name"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	InterestAPR     decimal.Decimal `json:"interestApr"`
	MinimumPayment  decimal.Decimal `json:"minimumPayment"`
}

// UpdateDebt replaces the mutable fields of a debt
func (s *DebtService) UpdateDebt(ctx context.Context, userID, id string, input *UpdateDebtInput) (*models.Debt, error) {
	create := &CreateDebtInput{
		UserID:          userID,
		Name:            input.Name,
		StartingBalance: input.StartingBalance,
		InterestAPR:     input.InterestAPR,
		MinimumPayment:  input.MinimumPayment,
	}
	if err := create.validate(); err != nil {
		return nil, err
	}

	debt, err := s.debts.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("debt", id)
		}
		return nil, err
	}

	debt.Name = input.Name
	debt.StartingBalance = input.StartingBalance
	debt.InterestAPR = input.InterestAPR
	debt.MinimumPayment = input.MinimumPayment

	if err := s.debts.Update(ctx, debt); err != nil {
		return nil, fmt.Errorf("failed to update debt: %w", err)
	}
	return debt, nil
}

// DeleteDebt removes a debt and its payments
func (s *DebtService) DeleteDebt(ctx context.Context, userID, id string) error {
	if err := s.debts.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("debt", id)
		}
		return err
	}
	return nil
}

// AddPaymentInput represents input for recording a payment
type AddPaymentInput struct {
	UserID string          `json:"userId"`
	DebtID string          `json:"debtId"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// AddPayment records a payment against a debt
func (s *DebtService) AddPayment(ctx context.Context, input *AddPaymentInput) (*models.DebtPayment, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewInvalidParameterError("amount", "must be positive")
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewInvalidParameterError("date", "must be set")
	}

	// verify ownership before writing
	if _, err := s.debts.GetByID(ctx, input.UserID, input.DebtID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("debt", input.DebtID)
		}
		return nil, err
	}

	payment := &models.DebtPayment{
		DebtID: input.DebtID,
		UserID: input.UserID,
		Date:   input.Date,
		Amount: input.Amount,
	}
	if err := s.debts.AddPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to add payment: %w", err)
	}
	return payment, nil
}

// ListPayments returns the payments against a debt, oldest first
func (s *DebtService) ListPayments(ctx context.Context, userID, debtID string) ([]*models.DebtPayment, error) {
	return s.debts.ListPayments(ctx, userID, debtID)
}

// DeletePayment removes one recorded payment
func (s *DebtService) DeletePayment(ctx context.Context, userID, paymentID string) error {
	if err := s.debts.DeletePayment(ctx, userID, paymentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("payment", paymentID)
		}
		return err
	}
	return nil
}

func (s *DebtService) withBalance(ctx context.Context, debt *models.Debt) (*DebtResult, error) {
	paid, err := s.debts.SumPayments(ctx, debt.UserID, debt.ID)
	if err != nil {
		return nil, err
	}
	balance := debt.StartingBalance.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return &DebtResult{Debt: *debt, PaidTotal: paid, Balance: balance}, nil
}
