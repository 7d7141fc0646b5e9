// Package service implements the application operations on top of the
// storage repositories and calculation packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/billing"
	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/paycycle"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// BillRepository is the storage surface BillService needs
type BillRepository interface {
	Create(ctx context.Context, bill *models.Bill) error
	GetByID(ctx context.Context, userID, id string) (*models.Bill, error)
	List(ctx context.Context, userID string, activeOnly bool) ([]*models.Bill, error)
	Update(ctx context.Context, bill *models.Bill) error
	Delete(ctx context.Context, userID, id string) error
}

// UserReader resolves users and their pay settings
type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TransactionSummer aggregates ledger entries over a date range
type TransactionSummer interface {
	SumByDirection(ctx context.Context, userID string, from, to time.Time) (in, out decimal.Decimal, err error)
	SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]*storage.CategoryTotal, error)
}

// SummaryCache caches computed pay-cycle summaries
type SummaryCache interface {
	CycleSummaryKey(userID string, cycleStart time.Time) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// BillService handles recurring bills and pay-cycle summaries
type BillService struct {
	bills BillRepository
	users UserReader
	txs   TransactionSummer
	cache SummaryCache
	now   func() time.Time
}

// NewBillService creates a new bill service. cache may be nil, in which case
// cycle summaries are always computed fresh.
func NewBillService(bills BillRepository, users UserReader, txs TransactionSummer, cache SummaryCache) *BillService {
	return &BillService{
		bills: bills,
		users: users,
		txs:   txs,
		cache: cache,
		now:   time.Now,
	}
}

// CreateBillInput represents input for creating a bill
type CreateBillInput struct {
	UserID     string          `json:"userId"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID *string         `json:"categoryId,omitempty"`
	AccountID  *string         `json:"accountId,omitempty"`
	DueDay     int             `json:"dueDay"`
	Frequency  types.Frequency `json:"frequency"`
	StartDate  *time.Time      `json:"startDate,omitempty"`
	EndDate    *time.Time      `json:"endDate,omitempty"`
}

func (in *CreateBillInput) validate() error {
	if in.UserID == "" {
		return apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if in.Name == "" {
		return apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	if in.Amount.IsNegative() {
		return apperrors.NewInvalidParameterError("amount", "must not be negative")
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return apperrors.NewInvalidParameterError("dueDay", "must be between 1 and 31")
	}
	if !types.ValidFrequency(in.Frequency) {
		return apperrors.NewInvalidParameterError("frequency", fmt.Sprintf("unknown frequency %q", in.Frequency))
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return apperrors.NewInvalidParameterError("endDate", "must not be before startDate")
	}
	return nil
}

// CreateBill creates a new recurring bill
func (s *BillService) CreateBill(ctx context.Context, input *CreateBillInput) (*models.Bill, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	bill := &models.Bill{
		UserID:     input.UserID,
		Name:       input.Name,
		Amount:     input.Amount,
		CategoryID: input.CategoryID,
		AccountID:  input.AccountID,
		DueDay:     input.DueDay,
		Frequency:  input.Frequency,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Active:     true,
	}
	if err := s.bills.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}
	return bill, nil
}

// GetBill returns one bill owned by the user
func (s *BillService) GetBill(ctx context.Context, userID, id string) (*models.Bill, error) {
	bill, err := s.bills.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("bill", id)
		}
		return nil, err
	}
	return bill, nil
}

// ListBills returns the user's bills, optionally only active ones
func (s *BillService) ListBills(ctx context.Context, userID string, activeOnly bool) ([]*models.Bill, error) {
	return s.bills.List(ctx, userID, activeOnly)
}

// UpdateBillInput carries the mutable bill fields
type UpdateBillInput struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID *string         `json:"categoryId,omitempty"`
	AccountID  *string         `json:"accountId,omitempty"`
	DueDay     int             `json:"dueDay"`
	Frequency  types.Frequency `json:"frequency"`
	StartDate  *time.Time      `json:"startDate,omitempty"`
	EndDate    *time.Time      `json:"endDate,omitempty"`
	Active     bool            `json:"active"`
}

// UpdateBill replaces the mutable fields of a bill
func (s *BillService) UpdateBill(ctx context.Context, userID, id string, input *UpdateBillInput) (*models.Bill, error) {
	create := &CreateBillInput{
		UserID:    userID,
		Name:      input.Name,
		Amount:    input.Amount,
		DueDay:    input.DueDay,
		Frequency: input.Frequency,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	if err := create.validate(); err != nil {
		return nil, err
	}

	bill, err := s.GetBill(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	bill.Name = input.Name
	bill.Amount = input.Amount
	bill.CategoryID = input.CategoryID
	bill.AccountID = input.AccountID
	bill.DueDay = input.DueDay
	bill.Frequency = input.Frequency
	bill.StartDate = input.StartDate
	bill.EndDate = input.EndDate
	bill.Active = input.Active

	if err := s.bills.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}
	return bill, nil
}

// DeleteBill removes a bill
func (s *BillService) DeleteBill(ctx context.Context, userID, id string) error {
	if err := s.bills.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("bill", id)
		}
		return err
	}
	return nil
}

// BillOccurrence is one projected due date
type BillOccurrence struct {
	BillID string          `json:"billId"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	DueOn  time.Time       `json:"dueOn"`
}

// MonthOccurrences projects all active bills' due dates in a calendar month
func (s *BillService) MonthOccurrences(ctx context.Context, userID string, year int, month time.Month) ([]BillOccurrence, error) {
	if year < 1970 || year > 9999 {
		return nil, apperrors.NewInvalidParameterError("year", "out of range")
	}
	if month < time.January || month > time.December {
		return nil, apperrors.NewInvalidParameterError("month", "must be between 1 and 12")
	}

	bills, err := s.bills.List(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	var occurrences []BillOccurrence
	for _, bill := range bills {
		dates, err := billing.InMonth(bill.Schedule(), year, month)
		if err != nil {
			return nil, fmt.Errorf("failed to project bill %s: %w", bill.ID, err)
		}
		for _, due := range dates {
			occurrences = append(occurrences, BillOccurrence{
				BillID: bill.ID,
				Name:   bill.Name,
				Amount: bill.Amount,
				DueOn:  due,
			})
		}
	}

	sortOccurrences(occurrences)
	return occurrences, nil
}

// CycleSummary describes money in and out of the current pay cycle
type CycleSummary struct {
	CycleStart   time.Time                `json:"cycleStart"`
	CycleEnd     time.Time                `json:"cycleEnd"`
	In           decimal.Decimal          `json:"in"`
	Out          decimal.Decimal          `json:"out"`
	Net          decimal.Decimal          `json:"net"`
	BillsDue     []BillOccurrence         `json:"billsDue"`
	BillsDueSum  decimal.Decimal          `json:"billsDueSum"`
	ByCategory   []*storage.CategoryTotal `json:"byCategory"`
	RemainingDay int                      `json:"remainingDays"`
}

// CurrentCycleSummary computes the summary for the pay cycle containing now.
// The user must have pay settings configured.
func (s *BillService) CurrentCycleSummary(ctx context.Context, userID string) (*CycleSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", userID)
		}
		return nil, err
	}
	if user.Pay == nil {
		return nil, apperrors.NewInvalidParameterError("paySettings", "pay settings not configured")
	}

	ref := s.now()
	cycle, err := paycycle.Current(user.Pay.PaydayDay, user.Pay.AdjustRule, ref, nil)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("paySettings", err.Error())
	}

	if s.cache != nil {
		var cached CycleSummary
		hit, err := s.cache.Get(ctx, s.cache.CycleSummaryKey(userID, cycle.Start), &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	summary, err := s.computeCycleSummary(ctx, userID, cycle, ref)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, s.cache.CycleSummaryKey(userID, cycle.Start), summary)
	}
	return summary, nil
}

func (s *BillService) computeCycleSummary(ctx context.Context, userID string, cycle paycycle.Cycle, ref time.Time) (*CycleSummary, error) {
	in, out, err := s.txs.SumByDirection(ctx, userID, cycle.Start, cycle.End)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.txs.SumByCategory(ctx, userID, cycle.Start, cycle.End)
	if err != nil {
		return nil, err
	}

	bills, err := s.bills.List(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	var due []BillOccurrence
	dueSum := decimal.Zero
	for _, bill := range bills {
		dates, err := billing.Occurrences(bill.Schedule(), cycle.Start, cycle.End)
		if err != nil {
			return nil, fmt.Errorf("failed to project bill %s: %w", bill.ID, err)
		}
		for _, d := range dates {
			due = append(due, BillOccurrence{BillID: bill.ID, Name: bill.Name, Amount: bill.Amount, DueOn: d})
			dueSum = dueSum.Add(bill.Amount)
		}
	}
	sortOccurrences(due)

	remaining := int(cycle.End.Sub(ref).Hours()/24) + 1
	if remaining < 0 {
		remaining = 0
	}

	return &CycleSummary{
		CycleStart:   cycle.Start,
		CycleEnd:     cycle.End,
		In:           in,
		Out:          out,
		Net:          in.Sub(out),
		BillsDue:     due,
		BillsDueSum:  dueSum,
		ByCategory:   byCategory,
		RemainingDay: remaining,
	}, nil
}

func sortOccurrences(occurrences []BillOccurrence) {
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].DueOn.Before(occurrences[j].DueOn)
	})
}
