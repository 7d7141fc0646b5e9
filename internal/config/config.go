// Package config provides configuration management for the home ledger
// application. It loads configuration from environment variables and .env
// files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Sync         SyncConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
	Integrations IntegrationsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// SyncConfig holds background sync configuration
type SyncConfig struct {
	Interval      time.Duration // how often the worker runs its task set
	MeterEnabled  bool
	ParcelEnabled bool
	QuoteEnabled  bool
	MailEnabled   bool
}

// RateLimitConfig holds API rate limiting configuration (requests/second)
type RateLimitConfig struct {
	FreeTier int
	PaidTier int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// IntegrationsConfig holds third-party API configuration
type IntegrationsConfig struct {
	TrackingAPIKey     string
	TrackingBaseURL    string
	TrackingDailyQuota int // provider free-tier request budget per day
	QuoteBaseURL       string
	MeterAPIKey        string
	MeterBaseURL       string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	WebhookSecret      string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "home_ledger"),
				User:           getEnv("POSTGRES_USER", "ledger"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "home_ledger"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Sync: SyncConfig{
			Interval:      getEnvAsDuration("SYNC_INTERVAL", 5*time.Minute),
			MeterEnabled:  getEnvAsBool("SYNC_METER_ENABLED", true),
			ParcelEnabled: getEnvAsBool("SYNC_PARCEL_ENABLED", true),
			QuoteEnabled:  getEnvAsBool("SYNC_QUOTE_ENABLED", true),
			MailEnabled:   getEnvAsBool("SYNC_MAIL_ENABLED", false),
		},
		RateLimit: RateLimitConfig{
			FreeTier: getEnvAsInt("RATE_LIMIT_FREE_TIER", 20),
			PaidTier: getEnvAsInt("RATE_LIMIT_PAID_TIER", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Integrations: IntegrationsConfig{
			TrackingAPIKey:     getEnv("TRACKING_API_KEY", ""),
			TrackingBaseURL:    getEnv("TRACKING_BASE_URL", "https://api.trackingmore.com/v4"),
			TrackingDailyQuota: getEnvAsInt("TRACKING_DAILY_QUOTA", 100),
			QuoteBaseURL:       getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
			MeterAPIKey:        getEnv("METER_API_KEY", ""),
			MeterBaseURL:       getEnv("METER_BASE_URL", ""),
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
			WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		},
	}

	if config.Sync.Interval < time.Minute {
		return nil, fmt.Errorf("sync interval must be at least 1 minute, got %v", config.Sync.Interval)
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
