// Package main provides the background sync worker entry point.
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
	"github.com/home-ledger/internal/config"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/quota"
	"github.com/home-ledger/internal/service"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/worker"
)

func main() {
	fmt.Println("Home Ledger Sync Worker")
	log.Println("Worker starting...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()

	// Database connections
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

	// Repositories
	userRepo := storage.NewUserRepository(postgres)
	tariffRepo := storage.NewEnergyTariffRepository(postgres)
	readingRepo := storage.NewEnergyReadingRepository(clickhouse)
	shipmentRepo := storage.NewShipmentRepository(postgres)
	investmentRepo := storage.NewInvestmentRepository(postgres)
	syncStatusRepo := storage.NewSyncStatusRepository(postgres)

	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	// Provider adapters. The tracking quota is shared with the API server
	// through Redis so both processes draw from the same daily budget.
	quotaTracker, err := quota.NewTracker(&quota.Config{
		Redis:       redis.Client(),
		DailyBudget: cfg.Integrations.TrackingDailyQuota,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create quota tracker")
	}

	trackingClient := adapter.NewTrackingClient(cfg.Integrations.TrackingAPIKey, cfg.Integrations.TrackingBaseURL, quotaTracker)
	quoteClient := adapter.NewQuoteClient(cfg.Integrations.QuoteBaseURL)
	meterClient := adapter.NewMeterClient(cfg.Integrations.MeterAPIKey, cfg.Integrations.MeterBaseURL)
	googleOAuth := adapter.NewGoogleOAuth(cfg.Integrations.GoogleClientID, cfg.Integrations.GoogleClientSecret, cfg.Integrations.GoogleRedirectURL)
	mailClient := adapter.NewMailClient("")

	// Services the worker drives
	energyService := service.NewEnergyService(tariffRepo, readingRepo)
	trackingService := service.NewTrackingService(shipmentRepo, trackingClient, logger)
	investService := service.NewInvestService(investmentRepo, quoteClient, cacheService, logger)
	orderService := service.NewOrderService(shipmentRepo, logger)
	receiptScanner := service.NewReceiptScanner(userRepo, googleOAuth, mailClient, orderService, logger)

	syncWorker, err := worker.NewSyncWorker(&worker.SyncWorkerConfig{
		Interval:      cfg.Sync.Interval,
		MeterEnabled:  cfg.Sync.MeterEnabled,
		ParcelEnabled: cfg.Sync.ParcelEnabled,
		QuoteEnabled:  cfg.Sync.QuoteEnabled,
		MailEnabled:   cfg.Sync.MailEnabled,

		Meter:     meterClient,
		Readings:  energyService,
		Progress:  readingRepo,
		Users:     userRepo,
		Shipments: trackingService,
		Quotes:    investService,
		Mail:      receiptScanner,
		Status:    syncStatusRepo,

		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create sync worker")
	}

	if err := syncWorker.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to start sync worker")
	}

	logger.WithFields(map[string]interface{}{
		"interval": cfg.Sync.Interval.String(),
		"meter":    cfg.Sync.MeterEnabled,
		"parcel":   cfg.Sync.ParcelEnabled,
		"quote":    cfg.Sync.QuoteEnabled,
		"mail":     cfg.Sync.MailEnabled,
	}).Info("Sync worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := syncWorker.Stop(ctx); err != nil {
		logger.WithError(err).Error("Worker shutdown error")
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}
