package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/stock"
	"github.com/home-ledger/internal/storage"
)

// ToiletryRepository is the storage surface StockService needs
type ToiletryRepository interface {
	CreateItem(ctx context.Context, item *models.ToiletryItem) error
	GetItem(ctx context.Context, userID, id string) (*models.ToiletryItem, error)
	ListItems(ctx context.Context, userID string) ([]*models.ToiletryItem, error)
	UpdateItem(ctx context.Context, item *models.ToiletryItem) error
	AdjustStock(ctx context.Context, userID, id string, delta float64) error
	DeleteItem(ctx context.Context, userID, id string) error
	LogUsage(ctx context.Context, log *models.ToiletryUsageLog) error
	ListUsageSince(ctx context.Context, userID, itemID string, since time.Time) ([]*models.ToiletryUsageLog, error)
	AddPurchase(ctx context.Context, purchase *models.ToiletryPurchase) error
	ListPurchases(ctx context.Context, userID, itemID string) ([]*models.ToiletryPurchase, error)
}

// ForecastCache caches computed stock forecasts
type ForecastCache interface {
	ForecastKey(userID, itemID string) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, keys ...string) error
}

// StockService handles toiletry stock levels and run-out forecasting
type StockService struct {
	items ToiletryRepository
	cache ForecastCache
	now   func() time.Time
}

// NewStockService creates a new stock service. cache may be nil.
func NewStockService(items ToiletryRepository, cache ForecastCache) *StockService {
	return &StockService{
		items: items,
		cache: cache,
		now:   time.Now,
	}
}

// CreateItemInput represents input for creating a tracked item
type CreateItemInput struct {
	UserID   string                 `json:"userId"`
	Name     string                 `json:"name"`
	Stock    float64                `json:"stock"`
	Unit     string                 `json:"unit"`
	Shipping *stock.ShippingProfile `json:"shipping,omitempty"`
}

func (in *CreateItemInput) validate() error {
	if in.UserID == "" {
		return apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if in.Name == "" {
		return apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	if in.Stock < 0 {
		return apperrors.NewInvalidParameterError("stock", "must not be negative")
	}
	if in.Shipping != nil {
		p := in.Shipping
		if p.DispatchMinDays < 0 || p.DispatchMaxDays < p.DispatchMinDays {
			return apperrors.NewInvalidParameterError("shipping", "invalid dispatch day range")
		}
		if p.DeliveryMinDays < 0 || p.DeliveryMaxDays < p.DeliveryMinDays {
			return apperrors.NewInvalidParameterError("shipping", "invalid delivery day range")
		}
		if p.CutoffHour < 0 || p.CutoffHour > 23 {
			return apperrors.NewInvalidParameterError("shipping", "cutoff hour must be 0-23")
		}
	}
	return nil
}

// CreateItem creates a new tracked toiletry item
func (s *StockService) CreateItem(ctx context.Context, input *CreateItemInput) (*models.ToiletryItem, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	item := &models.ToiletryItem{
		UserID:   input.UserID,
		Name:     input.Name,
		Stock:    input.Stock,
		Unit:     input.Unit,
		Shipping: input.Shipping,
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

// GetItem returns one item owned by the user
func (s *StockService) GetItem(ctx context.Context, userID, id string) (*models.ToiletryItem, error) {
	item, err := s.items.GetItem(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("item", id)
		}
		return nil, err
	}
	return item, nil
}

// ListItems returns all of the user's tracked items
func (s *StockService) ListItems(ctx context.Context, userID string) ([]*models.ToiletryItem, error) {
	return s.items.ListItems(ctx, userID)
}

// UpdateItemInput carries the mutable item fields
type UpdateItemInput struct {
	Name     string                 `json:"name"`
	Stock    float64                `json:"stock"`
	Unit     string                 `json:"unit"`
	Shipping *stock.ShippingProfile `json:"shipping,omitempty"`
}

// UpdateItem replaces the mutable fields of an item and invalidates its
// cached forecast.
func (s *StockService) UpdateItem(ctx context.Context, userID, id string, input *UpdateItemInput) (*models.ToiletryItem, error) {
	create := &CreateItemInput{
		UserID:   userID,
		Name:     input.Name,
		Stock:    input.Stock,
		Unit:     input.Unit,
		Shipping: input.Shipping,
	}
	if err := create.validate(); err != nil {
		return nil, err
	}

	item, err := s.GetItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	item.Name = input.Name
	item.Stock = input.Stock
	item.Unit = input.Unit
	item.Shipping = input.Shipping

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	s.invalidateForecast(ctx, userID, id)
	return item, nil
}

// DeleteItem removes an item and its history
func (s *StockService) DeleteItem(ctx context.Context, userID, id string) error {
	if err := s.items.DeleteItem(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("item", id)
		}
		return err
	}
	s.invalidateForecast(ctx, userID, id)
	return nil
}

// LogUsageInput represents input for recording consumption
type LogUsageInput struct {
	UserID   string    `json:"userId"`
	ItemID   string    `json:"itemId"`
	LoggedAt time.Time `json:"loggedAt"`
	Quantity float64   `json:"quantity"`
}

// LogUsage records consumption, decrements the stock level and invalidates
// the item's cached forecast.
func (s *StockService) LogUsage(ctx context.Context, input *LogUsageInput) (*models.ToiletryUsageLog, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.NewInvalidParameterError("quantity", "must be positive")
	}
	if _, err := s.GetItem(ctx, input.UserID, input.ItemID); err != nil {
		return nil, err
	}

	loggedAt := input.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}

	usage := &models.ToiletryUsageLog{
		ItemID:   input.ItemID,
		UserID:   input.UserID,
		LoggedAt: loggedAt,
		Quantity: input.Quantity,
	}
	if err := s.items.LogUsage(ctx, usage); err != nil {
		return nil, fmt.Errorf("failed to log usage: %w", err)
	}
	if err := s.items.AdjustStock(ctx, input.UserID, input.ItemID, -input.Quantity); err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	s.invalidateForecast(ctx, input.UserID, input.ItemID)
	return usage, nil
}

// AddPurchaseInput represents input for recording a restock
type AddPurchaseInput struct {
	UserID    string          `json:"userId"`
	ItemID    string          `json:"itemId"`
	OrderedAt time.Time       `json:"orderedAt"`
	Quantity  float64         `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// AddPurchase records a restock order, increments the stock level and
// invalidates the item's cached forecast.
func (s *StockService) AddPurchase(ctx context.Context, input *AddPurchaseInput) (*models.ToiletryPurchase, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.NewInvalidParameterError("quantity", "must be positive")
	}
	if input.Price.IsNegative() {
		return nil, apperrors.NewInvalidParameterError("price", "must not be negative")
	}
	if _, err := s.GetItem(ctx, input.UserID, input.ItemID); err != nil {
		return nil, err
	}

	orderedAt := input.OrderedAt
	if orderedAt.IsZero() {
		orderedAt = s.now()
	}

	purchase := &models.ToiletryPurchase{
		ItemID:    input.ItemID,
		UserID:    input.UserID,
		OrderedAt: orderedAt,
		Quantity:  input.Quantity,
		Price:     input.Price,
	}
	if err := s.items.AddPurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to add purchase: %w", err)
	}
	if err := s.items.AdjustStock(ctx, input.UserID, input.ItemID, input.Quantity); err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	s.invalidateForecast(ctx, input.UserID, input.ItemID)
	return purchase, nil
}

// ItemForecast is an item together with its run-out forecast
type ItemForecast struct {
	Item     *models.ToiletryItem `json:"item"`
	Forecast stock.Forecast       `json:"forecast"`
}

// ForecastItem computes (or returns the cached) run-out forecast for one item
func (s *StockService) ForecastItem(ctx context.Context, userID, itemID string) (*ItemForecast, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached ItemForecast
		hit, err := s.cache.Get(ctx, s.cache.ForecastKey(userID, itemID), &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	forecast, err := s.computeForecast(ctx, item)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, s.cache.ForecastKey(userID, itemID), forecast)
	}
	return forecast, nil
}

// ForecastAll computes forecasts for every item the user tracks
func (s *StockService) ForecastAll(ctx context.Context, userID string) ([]*ItemForecast, error) {
	items, err := s.items.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	forecasts := make([]*ItemForecast, 0, len(items))
	for _, item := range items {
		forecast, err := s.ForecastItem(ctx, userID, item.ID)
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, forecast)
	}
	return forecasts, nil
}

// ListUsage returns usage entries for an item inside the forecast window
func (s *StockService) ListUsage(ctx context.Context, userID, itemID string) ([]*models.ToiletryUsageLog, error) {
	since := s.now().Add(-stock.DefaultWindow)
	return s.items.ListUsageSince(ctx, userID, itemID, since)
}

// ListPurchases returns the purchase history for an item
func (s *StockService) ListPurchases(ctx context.Context, userID, itemID string) ([]*models.ToiletryPurchase, error) {
	return s.items.ListPurchases(ctx, userID, itemID)
}

func (s *StockService) computeForecast(ctx context.Context, item *models.ToiletryItem) (*ItemForecast, error) {
	now := s.now()
	logs, err := s.items.ListUsageSince(ctx, item.UserID, item.ID, now.Add(-stock.DefaultWindow))
	if err != nil {
		return nil, err
	}

	usage := make([]stock.UsageLog, 0, len(logs))
	for _, l := range logs {
		usage = append(usage, stock.UsageLog{At: l.LoggedAt, Quantity: l.Quantity})
	}

	var profile stock.ShippingProfile
	if item.Shipping != nil {
		profile = *item.Shipping
	}

	forecast := stock.Evaluate(item.Stock, usage, profile, stock.DefaultWindow, now)
	return &ItemForecast{Item: item, Forecast: forecast}, nil
}

func (s *StockService) invalidateForecast(ctx context.Context, userID, itemID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, s.cache.ForecastKey(userID, itemID))
}
