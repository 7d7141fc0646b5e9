package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService provides high-level JSON caching on top of Redis
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service with a default TTL
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyForecast is for toiletry stock forecasts
	CacheKeyForecast CacheKeyType = "forecast"
	// CacheKeyCycleSummary is for pay-cycle bill summaries
	CacheKeyCycleSummary CacheKeyType = "cycle"
	// CacheKeyQuote is for market quotes
	CacheKeyQuote CacheKeyType = "quote"
	// CacheKeyEnergy is for energy usage aggregates
	CacheKeyEnergy CacheKeyType = "energy"
)

// GenerateCacheKey generates a cache key for a given type and parameters.
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	normalizedParams := make([]string, len(params))
	for i, param := range params {
		normalizedParams[i] = strings.ToLower(param)
	}

	parts := append([]string{string(keyType)}, normalizedParams...)
	return strings.Join(parts, ":")
}

// ForecastKey generates a cache key for an item's stock forecast.
// Format: forecast:<user-id>:<item-id>
func (c *CacheService) ForecastKey(userID, itemID string) string {
	return c.GenerateCacheKey(CacheKeyForecast, userID, itemID)
}

// CycleSummaryKey generates a cache key for a user's current pay-cycle summary.
// Format: cycle:<user-id>:<cycle-start>
func (c *CacheService) CycleSummaryKey(userID string, cycleStart time.Time) string {
	return c.GenerateCacheKey(CacheKeyCycleSummary, userID, cycleStart.Format("2006-01-02"))
}

// QuoteKey generates a cache key for a market quote.
// Format: quote:<symbol>
func (c *CacheService) QuoteKey(symbol string) string {
	return c.GenerateCacheKey(CacheKeyQuote, symbol)
}

// EnergyKey generates a cache key for an energy usage aggregate.
// Format: energy:<user-id>:<fuel>:<from>:<to>
func (c *CacheService) EnergyKey(userID, fuel string, from, to time.Time) string {
	return c.GenerateCacheKey(CacheKeyEnergy, userID, fuel,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value in cache with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, ttl)
}

// Get retrieves a value from cache and deserializes it.
// Returns false on a cache miss.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a pattern.
// Pattern examples: "forecast:<user-id>:*", "quote:*"
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to find keys matching pattern: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...)
}

// InvalidateUserForecasts removes all cached forecasts for a user
func (c *CacheService) InvalidateUserForecasts(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("forecast:%s:*", strings.ToLower(userID))
	return c.InvalidatePattern(ctx, pattern)
}

// Exists checks if a key exists in cache
func (c *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	return c.redis.Exists(ctx, key)
}

// GetTTL returns the configured TTL for this cache service
func (c *CacheService) GetTTL() time.Duration {
	return c.ttl
}
