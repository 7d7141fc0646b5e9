package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "home_ledger", cfg.Database.Postgres.Database)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 20, cfg.RateLimit.FreeTier)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Sync.MeterEnabled)
	assert.False(t, cfg.Sync.MailEnabled)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SYNC_INTERVAL", "10m")
	t.Setenv("SYNC_QUOTE_ENABLED", "false")
	t.Setenv("RATE_LIMIT_PAID_TIER", "250")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Sync.Interval)
	assert.False(t, cfg.Sync.QuoteEnabled)
	assert.Equal(t, 250, cfg.RateLimit.PaidTier)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("POSTGRES_MAX_CONNECTIONS", "lots")
	t.Setenv("CACHE_TTL", "soonish")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Database.Postgres.MaxConnections)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestSyncIntervalFloor(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "10s")

	_, err := LoadConfig()
	assert.Error(t, err)
}
