// Package main provides the API server entry point for the home ledger service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/home-ledger/internal/adapter"
	"github.com/home-ledger/internal/api"
	"github.com/home-ledger/internal/config"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/quota"
	"github.com/home-ledger/internal/service"
	"github.com/home-ledger/internal/storage"
)

func main() {
	fmt.Println("Home Ledger API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	billRepo := storage.NewBillRepository(postgres)
	ledgerRepo := storage.NewLedgerRepository(postgres)
	debtRepo := storage.NewDebtRepository(postgres)
	toiletryRepo := storage.NewToiletryRepository(postgres)
	tariffRepo := storage.NewEnergyTariffRepository(postgres)
	readingRepo := storage.NewEnergyReadingRepository(clickhouse)
	subscriptionRepo := storage.NewSubscriptionRepository(postgres)
	shipmentRepo := storage.NewShipmentRepository(postgres)
	investmentRepo := storage.NewInvestmentRepository(postgres)
	nutritionRepo := storage.NewNutritionRepository(postgres)

	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	// Initialize provider adapters. The parcel tracker shares its daily
	// quota with the sync worker through Redis.
	quotaTracker, err := quota.NewTracker(&quota.Config{
		Redis:       redis.Client(),
		DailyBudget: cfg.Integrations.TrackingDailyQuota,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create quota tracker")
	}

	trackingClient := adapter.NewTrackingClient(cfg.Integrations.TrackingAPIKey, cfg.Integrations.TrackingBaseURL, quotaTracker)
	quoteClient := adapter.NewQuoteClient(cfg.Integrations.QuoteBaseURL)
	googleOAuth := adapter.NewGoogleOAuth(cfg.Integrations.GoogleClientID, cfg.Integrations.GoogleClientSecret, cfg.Integrations.GoogleRedirectURL)
	mailClient := adapter.NewMailClient("")

	// Initialize services
	userService := service.NewUserService(userRepo)
	billService := service.NewBillService(billRepo, userRepo, ledgerRepo, cacheService)
	ledgerService := service.NewLedgerService(ledgerRepo)
	debtService := service.NewDebtService(debtRepo)
	stockService := service.NewStockService(toiletryRepo, cacheService)
	energyService := service.NewEnergyService(tariffRepo, readingRepo)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo)
	trackingService := service.NewTrackingService(shipmentRepo, trackingClient, logger)
	investService := service.NewInvestService(investmentRepo, quoteClient, cacheService, logger)
	nutritionService := service.NewNutritionService(nutritionRepo)
	mealPlanService := service.NewMealPlanService(nutritionRepo)
	orderService := service.NewOrderService(shipmentRepo, logger)

	// Create and start the API server
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		FreeTierRPS:     cfg.RateLimit.FreeTier,
		PaidTierRPS:     cfg.RateLimit.PaidTier,
		WebhookSecret:   cfg.Integrations.WebhookSecret,
	}

	services := &api.Services{
		Users:         userService,
		Bills:         billService,
		Ledger:        ledgerService,
		Debts:         debtService,
		Stock:         stockService,
		Energy:        energyService,
		Subscriptions: subscriptionService,
		Shipments:     trackingService,
		Investments:   investService,
		Nutrition:     nutritionService,
		MealPlan:      mealPlanService,
		Orders:        orderService,
		OAuth:         googleOAuth,
		Mail:          mailClient,
	}

	server := api.NewServer(serverConfig, services, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("API server started")

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
