// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/adapter"
	"github.com/home-ledger/internal/invest"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/service"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// Service interfaces for dependency injection and testing

// UserServiceInterface defines the interface for user service operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, input *service.CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetTier(ctx context.Context, userID string) (types.UserTier, error)
	UpdatePaySettings(ctx context.Context, userID string, pay *models.PaySettings) (*models.User, error)
	ConnectGmail(ctx context.Context, userID, email, refreshToken string) error
	GmailConnectionStatus(ctx context.Context, userID string) (bool, string, error)
	DisconnectGmail(ctx context.Context, userID string) error
}

// BillServiceInterface defines the interface for bill service operations
type BillServiceInterface interface {
	CreateBill(ctx context.Context, input *service.CreateBillInput) (*models.Bill, error)
	GetBill(ctx context.Context, userID, id string) (*models.Bill, error)
	ListBills(ctx context.Context, userID string, activeOnly bool) ([]*models.Bill, error)
	UpdateBill(ctx context.Context, userID, id string, input *service.UpdateBillInput) (*models.Bill, error)
	DeleteBill(ctx context.Context, userID, id string) error
	MonthOccurrences(ctx context.Context, userID string, year int, month time.Month) ([]service.BillOccurrence, error)
	CurrentCycleSummary(ctx context.Context, userID string) (*service.CycleSummary, error)
}

// LedgerServiceInterface defines the interface for ledger service operations
type LedgerServiceInterface interface {
	CreateCategory(ctx context.Context, input *service.CreateCategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
	CreateAccount(ctx context.Context, input *service.CreateMoneyAccountInput) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	CreateTransaction(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// DebtServiceInterface defines the interface for debt service operations
type DebtServiceInterface interface {
	CreateDebt(ctx context.Context, input *service.CreateDebtInput) (*models.Debt, error)
	GetDebt(ctx context.Context, userID, id string) (*service.DebtResult, error)
	ListDebts(ctx context.Context, userID string) ([]*service.DebtResult, error)
	UpdateDebt(ctx context.Context, userID, id string, input *service.UpdateDebtInput) (*models.Debt, error)
	DeleteDebt(ctx context.Context, userID, id string) error
	AddPayment(ctx context.Context, input *service.AddPaymentInput) (*models.DebtPayment, error)
	ListPayments(ctx context.Context, userID, debtID string) ([]*models.DebtPayment, error)
	DeletePayment(ctx context.Context, userID, paymentID string) error
}

// StockServiceInterface defines the interface for toiletry stock operations
type StockServiceInterface interface {
	CreateItem(ctx context.Context, input *service.CreateItemInput) (*models.ToiletryItem, error)
	GetItem(ctx context.Context, userID, id string) (*models.ToiletryItem, error)
	ListItems(ctx context.Context, userID string) ([]*models.ToiletryItem, error)
	UpdateItem(ctx context.Context, userID, id string, input *service.UpdateItemInput) (*models.ToiletryItem, error)
	DeleteItem(ctx context.Context, userID, id string) error
	LogUsage(ctx context.Context, input *service.LogUsageInput) (*models.ToiletryUsageLog, error)
	AddPurchase(ctx context.Context, input *service.AddPurchaseInput) (*models.ToiletryPurchase, error)
	ForecastItem(ctx context.Context, userID, itemID string) (*service.ItemForecast, error)
	ForecastAll(ctx context.Context, userID string) ([]*service.ItemForecast, error)
	ListUsage(ctx context.Context, userID, itemID string) ([]*models.ToiletryUsageLog, error)
	ListPurchases(ctx context.Context, userID, itemID string) ([]*models.ToiletryPurchase, error)
}

// EnergyServiceInterface defines the interface for energy service operations
type EnergyServiceInterface interface {
	CreateTariff(ctx context.Context, input *service.CreateTariffInput) (*models.EnergyTariff, error)
	ListTariffs(ctx context.Context, userID string, fuel types.Fuel) ([]*models.EnergyTariff, error)
	DeleteTariff(ctx context.Context, userID, id string) error
	IngestReadings(ctx context.Context, userID string, inputs []service.IngestReadingInput) (int, error)
	ListReadings(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]*models.EnergyReading, error)
	DailyUsage(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]models.DailyUsage, error)
}

// SubscriptionServiceInterface defines the interface for subscription review operations
type SubscriptionServiceInterface interface {
	CreateService(ctx context.Context, input *service.CreateServiceInput) (*models.TrackedService, error)
	GetService(ctx context.Context, userID, id string) (*models.TrackedService, error)
	ListServices(ctx context.Context, userID string) ([]*models.TrackedService, error)
	UpdateService(ctx context.Context, userID, id string, input *service.UpdateServiceInput) (*models.TrackedService, error)
	DeleteService(ctx context.Context, userID, id string) error
	RecordComparison(ctx context.Context, input *service.RecordComparisonInput) (*models.ComparisonResult, error)
	Review(ctx context.Context, userID string) ([]service.ReviewItem, error)
}

// TrackingServiceInterface defines the interface for parcel tracking operations
type TrackingServiceInterface interface {
	CreateShipment(ctx context.Context, input *service.CreateShipmentInput) (*models.Shipment, error)
	GetShipment(ctx context.Context, userID, id string) (*models.Shipment, []*models.ShipmentEvent, error)
	ListShipments(ctx context.Context, userID string, activeOnly bool) ([]*models.Shipment, error)
	DeleteShipment(ctx context.Context, userID, id string) error
	Refresh(ctx context.Context, userID, id string) (*models.Shipment, error)
	ApplyWebhook(ctx context.Context, payload *service.WebhookPayload) error
}

// InvestServiceInterface defines the interface for investment operations
type InvestServiceInterface interface {
	CreateAccount(ctx context.Context, input *service.CreateAccountInput) (*models.InvestmentAccount, error)
	GetAccount(ctx context.Context, userID, id string) (*models.InvestmentAccount, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.InvestmentAccount, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	AddTransaction(ctx context.Context, input *service.AddTransactionInput) (*models.InvestmentTransaction, error)
	ListTransactions(ctx context.Context, userID, accountID string) ([]*models.InvestmentTransaction, error)
	AddValuation(ctx context.Context, input *service.AddValuationInput) (*models.InvestmentValuation, error)
	ValuationSeries(ctx context.Context, userID, accountID string, from, to time.Time) ([]invest.Point, error)
	Projection(ctx context.Context, userID, accountID string, monthlyContribution float64, months int) ([]invest.Projection, error)
	RefreshQuote(ctx context.Context, userID, accountID string) (*models.InvestmentValuation, error)
}

// NutritionServiceInterface defines the interface for nutrition target operations
type NutritionServiceInterface interface {
	ComputeTargets(ctx context.Context, input *service.ComputeTargetsInput) (*models.WeeklyNutritionTarget, error)
	GetWeekTargets(ctx context.Context, userID string, anchor time.Time) (*models.WeeklyNutritionTarget, error)
	ListTargets(ctx context.Context, userID string, limit int) ([]*models.WeeklyNutritionTarget, error)
}

// MealPlanServiceInterface defines the interface for meal plan operations
type MealPlanServiceInterface interface {
	Window(ctx context.Context, userID string, anchor time.Time) (*service.WeekPlan, error)
	CreateBlackout(ctx context.Context, input *service.CreateBlackoutInput) (*models.MealPlanBlackout, error)
	ListBlackouts(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlanBlackout, error)
	DeleteBlackout(ctx context.Context, userID, id string) error
}

// OrderServiceInterface defines the interface for online order operations
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, input *service.CreateOrderInput) (*models.OnlineOrder, error)
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.OnlineOrder, error)
}

// GoogleOAuthInterface defines the OAuth exchanges used by the Gmail connect flow
type GoogleOAuthInterface interface {
	ConsentURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*adapter.TokenResponse, error)
}

// MailProfileInterface resolves an access token to its mailbox address
type MailProfileInterface interface {
	GetProfile(ctx context.Context, accessToken string) (string, error)
}

// Services bundles the service dependencies of the server.
type Services struct {
	Users         UserServiceInterface
	Bills         BillServiceInterface
	Ledger        LedgerServiceInterface
	Debts         DebtServiceInterface
	Stock         StockServiceInterface
	Energy        EnergyServiceInterface
	Subscriptions SubscriptionServiceInterface
	Shipments     TrackingServiceInterface
	Investments   InvestServiceInterface
	Nutrition     NutritionServiceInterface
	MealPlan      MealPlanServiceInterface
	Orders        OrderServiceInterface
	OAuth         GoogleOAuthInterface
	Mail          MailProfileInterface
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	services   *Services
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int // Requests per second for free tier
	PaidTierRPS     int // Requests per second for paid tier
	WebhookSecret   string
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services *Services, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		config:   config,
		logger:   logger.WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Signup happens before a user exists, so it sits outside the
	// authenticated subrouter.
	s.router.HandleFunc("/api/users", s.handleCreateUser).Methods("POST")

	// Webhook and OAuth endpoints carry their own authentication and are
	// not rate limited per user.
	s.router.HandleFunc("/webhooks/tracking", s.handleTrackingWebhook).Methods("POST")
	s.router.HandleFunc("/integrations/gmail/connect", s.handleGmailConnect).Methods("GET")
	s.router.HandleFunc("/integrations/gmail/callback", s.handleGmailCallback).Methods("GET")

	// Everything under /api requires a known user and is rate limited by tier.
	rateLimiter := NewRateLimiter(s.config.FreeTierRPS, s.config.PaidTierRPS)
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.services.Users))
	api.Use(RateLimitMiddleware(rateLimiter))

	// User endpoints
	api.HandleFunc("/users/me", s.handleGetMe).Methods("GET")
	api.HandleFunc("/users/me/pay-settings", s.handleUpdatePaySettings).Methods("PUT")
	api.HandleFunc("/users/me/gmail", s.handleGmailStatus).Methods("GET")
	api.HandleFunc("/users/me/gmail", s.handleGmailDisconnect).Methods("DELETE")

	// Bill endpoints (literal paths before the {id} routes)
	api.HandleFunc("/bills/occurrences", s.handleBillOccurrences).Methods("GET")
	api.HandleFunc("/bills", s.handleCreateBill).Methods("POST")
	api.HandleFunc("/bills", s.handleListBills).Methods("GET")
	api.HandleFunc("/bills/{id}", s.handleGetBill).Methods("GET")
	api.HandleFunc("/bills/{id}", s.handleUpdateBill).Methods("PUT")
	api.HandleFunc("/bills/{id}", s.handleDeleteBill).Methods("DELETE")
	api.HandleFunc("/cycle/summary", s.handleCycleSummary).Methods("GET")

	// Ledger endpoints
	api.HandleFunc("/categories", s.handleCreateCategory).Methods("POST")
	api.HandleFunc("/categories", s.handleListCategories).Methods("GET")
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods("DELETE")
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods("POST")
	api.HandleFunc("/accounts", s.handleListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{id}", s.handleDeleteAccount).Methods("DELETE")
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods("POST")
	api.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods("DELETE")

	// Debt endpoints
	api.HandleFunc("/debts", s.handleCreateDebt).Methods("POST")
	api.HandleFunc("/debts", s.handleListDebts).Methods("GET")
	api.HandleFunc("/debts/{id}", s.handleGetDebt).Methods("GET")
	api.HandleFunc("/debts/{id}", s.handleUpdateDebt).Methods("PUT")
	api.HandleFunc("/debts/{id}", s.handleDeleteDebt).Methods("DELETE")
	api.HandleFunc("/debts/{id}/payments", s.handleAddDebtPayment).Methods("POST")
	api.HandleFunc("/debts/{id}/payments", s.handleListDebtPayments).Methods("GET")
	api.HandleFunc("/debts/{id}/payments/{paymentID}", s.handleDeleteDebtPayment).Methods("DELETE")

	// Toiletry stock endpoints
	api.HandleFunc("/toiletries/forecast", s.handleForecastAll).Methods("GET")
	api.HandleFunc("/toiletries", s.handleCreateItem).Methods("POST")
	api.HandleFunc("/toiletries", s.handleListItems).Methods("GET")
	api.HandleFunc("/toiletries/{id}", s.handleGetItem).Methods("GET")
	api.HandleFunc("/toiletries/{id}", s.handleUpdateItem).Methods("PUT")
	api.HandleFunc("/toiletries/{id}", s.handleDeleteItem).Methods("DELETE")
	api.HandleFunc("/toiletries/{id}/usage", s.handleLogUsage).Methods("POST")
	api.HandleFunc("/toiletries/{id}/usage", s.handleListUsage).Methods("GET")
	api.HandleFunc("/toiletries/{id}/purchases", s.handleAddPurchase).Methods("POST")
	api.HandleFunc("/toiletries/{id}/purchases", s.handleListPurchases).Methods("GET")
	api.HandleFunc("/toiletries/{id}/forecast", s.handleForecastItem).Methods("GET")

	// Energy endpoints
	api.HandleFunc("/energy/tariffs", s.handleCreateTariff).Methods("POST")
	api.HandleFunc("/energy/tariffs", s.handleListTariffs).Methods("GET")
	api.HandleFunc("/energy/tariffs/{id}", s.handleDeleteTariff).Methods("DELETE")
	api.HandleFunc("/energy/readings", s.handleIngestReadings).Methods("POST")
	api.HandleFunc("/energy/readings", s.handleListReadings).Methods("GET")
	api.HandleFunc("/energy/daily", s.handleDailyUsage).Methods("GET")

	// Subscription endpoints
	api.HandleFunc("/subscriptions/review", s.handleSubscriptionReview).Methods("GET")
	api.HandleFunc("/subscriptions", s.handleCreateService).Methods("POST")
	api.HandleFunc("/subscriptions", s.handleListServices).Methods("GET")
	api.HandleFunc("/subscriptions/{id}", s.handleGetService).Methods("GET")
	api.HandleFunc("/subscriptions/{id}", s.handleUpdateService).Methods("PUT")
	api.HandleFunc("/subscriptions/{id}", s.handleDeleteService).Methods("DELETE")
	api.HandleFunc("/subscriptions/{id}/comparisons", s.handleRecordComparison).Methods("POST")

	// Shipment endpoints
	api.HandleFunc("/shipments", s.handleCreateShipment).Methods("POST")
	api.HandleFunc("/shipments", s.handleListShipments).Methods("GET")
	api.HandleFunc("/shipments/{id}", s.handleGetShipment).Methods("GET")
	api.HandleFunc("/shipments/{id}", s.handleDeleteShipment).Methods("DELETE")
	api.HandleFunc("/shipments/{id}/refresh", s.handleRefreshShipment).Methods("POST")

	// Investment endpoints
	api.HandleFunc("/investments", s.handleCreateInvestAccount).Methods("POST")
	api.HandleFunc("/investments", s.handleListInvestAccounts).Methods("GET")
	api.HandleFunc("/investments/{id}", s.handleGetInvestAccount).Methods("GET")
	api.HandleFunc("/investments/{id}", s.handleDeleteInvestAccount).Methods("DELETE")
	api.HandleFunc("/investments/{id}/transactions", s.handleAddInvestTransaction).Methods("POST")
	api.HandleFunc("/investments/{id}/transactions", s.handleListInvestTransactions).Methods("GET")
	api.HandleFunc("/investments/{id}/valuations", s.handleAddValuation).Methods("POST")
	api.HandleFunc("/investments/{id}/series", s.handleValuationSeries).Methods("GET")
	api.HandleFunc("/investments/{id}/projection", s.handleProjection).Methods("GET")
	api.HandleFunc("/investments/{id}/quote", s.handleRefreshQuote).Methods("POST")

	// Nutrition endpoints
	api.HandleFunc("/nutrition/targets/history", s.handleListTargets).Methods("GET")
	api.HandleFunc("/nutrition/targets", s.handleComputeTargets).Methods("POST")
	api.HandleFunc("/nutrition/targets", s.handleGetWeekTargets).Methods("GET")

	// Meal plan endpoints
	api.HandleFunc("/mealplan/window", s.handleMealPlanWindow).Methods("GET")
	api.HandleFunc("/mealplan/blackouts", s.handleCreateBlackout).Methods("POST")
	api.HandleFunc("/mealplan/blackouts", s.handleListBlackouts).Methods("GET")
	api.HandleFunc("/mealplan/blackouts/{id}", s.handleDeleteBlackout).Methods("DELETE")

	// Order endpoints
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "home-ledger",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
