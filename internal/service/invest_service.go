package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/adapter"
	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/invest"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
)

// InvestmentRepository is the storage surface InvestService needs
type InvestmentRepository interface {
	CreateAccount(ctx context.Context, account *models.InvestmentAccount) error
	GetAccount(ctx context.Context, userID, id string) (*models.InvestmentAccount, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.InvestmentAccount, error)
	ListAccountsWithSymbols(ctx context.Context) ([]*models.InvestmentAccount, error)
	UpdateAccount(ctx context.Context, account *models.InvestmentAccount) error
	DeleteAccount(ctx context.Context, userID, id string) error
	AddTransaction(ctx context.Context, tx *models.InvestmentTransaction) error
	ListTransactions(ctx context.Context, userID, accountID string) ([]*models.InvestmentTransaction, error)
	AddValuation(ctx context.Context, v *models.InvestmentValuation) error
	ListValuations(ctx context.Context, userID, accountID string) ([]*models.InvestmentValuation, error)
}

// QuoteProvider is the market-data surface InvestService needs
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*adapter.Quote, error)
}

// QuoteCache caches recent quote lookups
type QuoteCache interface {
	QuoteKey(symbol string) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// InvestService handles investment accounts, valuations and projections
type InvestService struct {
	accounts InvestmentRepository
	quotes   QuoteProvider
	cache    QuoteCache
	logger   *logging.Logger
	now      func() time.Time
}

// NewInvestService creates a new investment service. quotes and cache may be
// nil.
func NewInvestService(accounts InvestmentRepository, quotes QuoteProvider, cache QuoteCache, logger *logging.Logger) *InvestService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &InvestService{
		accounts: accounts,
		quotes:   quotes,
		cache:    cache,
		logger:   logger.WithField("service", "invest"),
		now:      time.Now,
	}
}

// CreateAccountInput represents input for creating an investment account
type CreateAccountInput struct {
	UserID          string  `json:"userId"`
	Name            string  `json:"name"`
	AnnualReturnPct float64 `json:"annualReturnPct"`
	QuoteSymbol     *string `json:"quoteSymbol,omitempty"`
}

// CreateAccount creates a new investment account
func (s *InvestService) CreateAccount(ctx context.Context, input *CreateAccountInput) (*models.InvestmentAccount, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.Name == "" {
		return nil, apperrors.NewInvalidParameterError("name", "must not be empty")
	}

	account := &models.InvestmentAccount{
		UserID:          input.UserID,
		Name:            input.Name,
		AnnualReturnPct: input.AnnualReturnPct,
		QuoteSymbol:     input.QuoteSymbol,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccount returns one account owned by the user
func (s *InvestService) GetAccount(ctx context.Context, userID, id string) (*models.InvestmentAccount, error) {
	account, err := s.accounts.GetAccount(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account", id)
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns all of the user's accounts
func (s *InvestService) ListAccounts(ctx context.Context, userID string) ([]*models.InvestmentAccount, error) {
	return s.accounts.ListAccounts(ctx, userID)
}

// DeleteAccount removes an account and its history
func (s *InvestService) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.accounts.DeleteAccount(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("account", id)
		}
		return err
	}
	return nil
}

// AddTransactionInput represents a cash movement on an account
type AddTransactionInput struct {
	UserID    string          `json:"userId"`
	AccountID string          `json:"accountId"`
	Date      time.Time       `json:"date"`
	Kind      invest.TxKind   `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
}

// AddTransaction records a deposit, withdrawal, dividend or fee
func (s *InvestService) AddTransaction(ctx context.Context, input *AddTransactionInput) (*models.InvestmentTransaction, error) {
	if !invest.ValidTxKind(input.Kind) {
		return nil, apperrors.NewInvalidParameterError("kind", fmt.Sprintf("unknown transaction kind %q", input.Kind))
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewInvalidParameterError("amount", "must be positive")
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewInvalidParameterError("date", "must be set")
	}
	if _, err := s.GetAccount(ctx, input.UserID, input.AccountID); err != nil {
		return nil, err
	}

	tx := &models.InvestmentTransaction{
		AccountID: input.AccountID,
		UserID:    input.UserID,
		Date:      input.Date,
		Kind:      input.Kind,
		Amount:    input.Amount,
	}
	if err := s.accounts.AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns an account's cash movements, oldest first
func (s *InvestService) ListTransactions(ctx context.Context, userID, accountID string) ([]*models.InvestmentTransaction, error) {
	return s.accounts.ListTransactions(ctx, userID, accountID)
}

// AddValuationInput pins an account's value on a date
type AddValuationInput struct {
	UserID    string          `json:"userId"`
	AccountID string          `json:"accountId"`
	Date      time.Time       `json:"date"`
	Value     decimal.Decimal `json:"value"`
}

// AddValuation records a manual valuation, replacing any same-day figure
func (s *InvestService) AddValuation(ctx context.Context, input *AddValuationInput) (*models.InvestmentValuation, error) {
	if input.Value.IsNegative() {
		return nil, apperrors.NewInvalidParameterError("value", "must not be negative")
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewInvalidParameterError("date", "must be set")
	}
	if _, err := s.GetAccount(ctx, input.UserID, input.AccountID); err != nil {
		return nil, err
	}

	valuation := &models.InvestmentValuation{
		AccountID: input.AccountID,
		UserID:    input.UserID,
		Date:      input.Date,
		Value:     input.Value,
		Source:    models.ValuationManual,
	}
	if err := s.accounts.AddValuation(ctx, valuation); err != nil {
		return nil, fmt.Errorf("failed to add valuation: %w", err)
	}
	return valuation, nil
}

// ValuationSeries computes the day-by-day value of an account between from
// and to, compounding at the account's expected return and pinning manual
// valuations where they exist.
func (s *InvestService) ValuationSeries(ctx context.Context, userID, accountID string, from, to time.Time) ([]invest.Point, error) {
	if !from.Before(to) {
		return nil, apperrors.NewInvalidParameterError("from", "must be before to")
	}
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	txs, err := s.accounts.ListTransactions(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	valuations, err := s.accounts.ListValuations(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	investTxs := make([]invest.Transaction, 0, len(txs))
	for _, tx := range txs {
		amount, _ := tx.Amount.Float64()
		investTxs = append(investTxs, invest.Transaction{Date: tx.Date, Kind: tx.Kind, Amount: amount})
	}
	manual := make([]invest.Point, 0, len(valuations))
	for _, v := range valuations {
		value, _ := v.Value.Float64()
		manual = append(manual, invest.Point{Date: v.Date, Value: value})
	}

	return invest.ValuationFromSeries(investTxs, account.AnnualReturnPct, from, to, manual), nil
}

// Projection projects an account's growth forward under the conservative,
// expected and aggressive return scenarios.
func (s *InvestService) Projection(ctx context.Context, userID, accountID string, monthlyContribution float64, months int) ([]invest.Projection, error) {
	if months <= 0 || months > 1200 {
		return nil, apperrors.NewInvalidParameterError("months", "must be between 1 and 1200")
	}
	if monthlyContribution < 0 {
		return nil, apperrors.NewInvalidParameterError("monthlyContribution", "must not be negative")
	}
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	current, err := s.currentValue(ctx, userID, accountID, account.AnnualReturnPct)
	if err != nil {
		return nil, err
	}
	return invest.ProjectScenarios(current, monthlyContribution, account.AnnualReturnPct, months), nil
}

// RefreshQuote fetches the account's market quote and upserts today's
// valuation with it.
func (s *InvestService) RefreshQuote(ctx context.Context, userID, accountID string) (*models.InvestmentValuation, error) {
	if s.quotes == nil {
		return nil, apperrors.NewInternalError("quote provider not configured", nil)
	}
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account.QuoteSymbol == nil || *account.QuoteSymbol == "" {
		return nil, apperrors.NewInvalidParameterError("quoteSymbol", "account has no quote symbol")
	}

	quote, err := s.lookupQuote(ctx, *account.QuoteSymbol)
	if err != nil {
		return nil, err
	}

	valuation := &models.InvestmentValuation{
		AccountID: accountID,
		UserID:    userID,
		Date:      midnightUTC(s.now()),
		Value:     quote.Price,
		Source:    models.ValuationQuote,
	}
	if err := s.accounts.AddValuation(ctx, valuation); err != nil {
		return nil, fmt.Errorf("failed to store quote valuation: %w", err)
	}
	return valuation, nil
}

// RefreshAllQuotes refreshes every account that has a quote symbol. Used by
// the background sync; one failing symbol does not stop the rest.
func (s *InvestService) RefreshAllQuotes(ctx context.Context) error {
	if s.quotes == nil {
		return apperrors.NewInternalError("quote provider not configured", nil)
	}
	accounts, err := s.accounts.ListAccountsWithSymbols(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, account := range accounts {
		if _, err := s.RefreshQuote(ctx, account.UserID, account.ID); err != nil {
			failed++
			s.logger.WithError(err).WithField("symbol", *account.QuoteSymbol).
				Warn("failed to refresh quote")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d quote refreshes failed", failed, len(accounts))
	}
	return nil
}

func (s *InvestService) lookupQuote(ctx context.Context, symbol string) (*adapter.Quote, error) {
	if s.cache != nil {
		var cached adapter.Quote
		hit, err := s.cache.Get(ctx, s.cache.QuoteKey(symbol), &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}
	quote, err := s.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, s.cache.QuoteKey(symbol), quote)
	}
	return quote, nil
}

// currentValue is the last point of a valuation series ending today
func (s *InvestService) currentValue(ctx context.Context, userID, accountID string, annualPct float64) (float64, error) {
	now := s.now()

	txs, err := s.accounts.ListTransactions(ctx, userID, accountID)
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}
	valuations, err := s.accounts.ListValuations(ctx, userID, accountID)
	if err != nil {
		return 0, err
	}

	investTxs := make([]invest.Transaction, 0, len(txs))
	for _, tx := range txs {
		amount, _ := tx.Amount.Float64()
		investTxs = append(investTxs, invest.Transaction{Date: tx.Date, Kind: tx.Kind, Amount: amount})
	}
	manual := make([]invest.Point, 0, len(valuations))
	for _, v := range valuations {
		value, _ := v.Value.Float64()
		manual = append(manual, invest.Point{Date: v.Date, Value: value})
	}

	series := invest.ValuationFromSeries(investTxs, annualPct, txs[0].Date, now, manual)
	if len(series) == 0 {
		return 0, nil
	}
	return series[len(series)-1].Value, nil
}

func midnightUTC(d time.Time) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
