// Package quota tracks daily call budgets for metered third-party APIs.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultDailyBudget = 100                // Calls per provider per UTC day
	DefaultKeyTTL      = 48 * time.Hour     // TTL for Redis keys (day + buffer)
	KeyPrefix          = "quota:provider:"  // quota:provider:<name>:<yyyy-mm-dd>

	// DefaultInteractiveReserve is the share of the daily budget held back
	// for interactive calls. Background polling is capped below it so a
	// user-triggered refresh still goes through late in the day.
	DefaultInteractiveReserve = 0.2
)

// ErrQuotaExhausted is returned when a provider's daily budget is spent.
var ErrQuotaExhausted = errors.New("daily API quota exhausted")

type interactiveKey struct{}

// WithInteractive marks ctx as carrying a user-triggered call. Quota checks
// under such a context may spend into the interactive reserve.
func WithInteractive(ctx context.Context) context.Context {
	return context.WithValue(ctx, interactiveKey{}, true)
}

// IsInteractive reports whether ctx was marked by WithInteractive.
func IsInteractive(ctx context.Context) bool {
	v, _ := ctx.Value(interactiveKey{}).(bool)
	return v
}

// Tracker coordinates call consumption across processes using Redis.
// The server and the sync worker share the same budget, so the counter
// has to live outside either process.
type Tracker struct {
	redis            redis.Cmdable
	dailyBudget      int
	backgroundBudget int
	keyTTL           time.Duration
	now              func() time.Time
}

// Config holds configuration for the quota tracker.
type Config struct {
	// Redis is the client used for cross-process coordination. Required.
	Redis redis.Cmdable

	// DailyBudget is the number of calls allowed per provider per UTC day.
	// Default: 100.
	DailyBudget int

	// KeyTTL is the TTL for Redis keys. Default: 48h.
	KeyTTL time.Duration

	// InteractiveReserve is the fraction of the daily budget reserved for
	// interactive calls (see WithInteractive). Must be in [0, 1).
	// Default: 0.2.
	InteractiveReserve float64
}

// Usage contains current consumption for a provider.
type Usage struct {
	Provider  string    `json:"provider"`
	Used      int       `json:"used"`
	Budget    int       `json:"budget"`
	Remaining int       `json:"remaining"`
	DayStart  time.Time `json:"dayStart"`
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg *Config) (*Tracker, error) {
	if cfg == nil || cfg.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.DailyBudget < 0 {
		return nil, errors.New("daily budget cannot be negative")
	}
	if cfg.InteractiveReserve < 0 || cfg.InteractiveReserve >= 1 {
		return nil, errors.New("interactive reserve must be in [0, 1)")
	}

	dailyBudget := cfg.DailyBudget
	if dailyBudget == 0 {
		dailyBudget = DefaultDailyBudget
	}
	keyTTL := cfg.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}
	reserve := cfg.InteractiveReserve
	if reserve == 0 {
		reserve = DefaultInteractiveReserve
	}

	return &Tracker{
		redis:            cfg.Redis,
		dailyBudget:      dailyBudget,
		backgroundBudget: int(float64(dailyBudget) * (1 - reserve)),
		keyTTL:           keyTTL,
		now:              time.Now,
	}, nil
}

// dayStart returns the start of the current UTC day.
func (t *Tracker) dayStart() time.Time {
	return t.now().UTC().Truncate(24 * time.Hour)
}

func (t *Tracker) key(provider string, day time.Time) string {
	return KeyPrefix + provider + ":" + day.Format("2006-01-02")
}

// checkAndIncrScript atomically checks the counter against the budget and
// increments it only when within budget.
var checkAndIncrScript = redis.NewScript(`
	local key = KEYS[1]
	local calls = tonumber(ARGV[1])
	local budget = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + calls > budget then
		return {0, used}
	end

	redis.call('INCRBY', key, calls)
	redis.call('EXPIRE', key, ttl)
	return {1, used + calls}
`)

// TryConsume attempts to consume calls from the provider's daily budget.
// Background callers are capped below the full budget so the interactive
// reserve stays available; a ctx marked WithInteractive may spend into it.
// Returns ErrQuotaExhausted when the applicable budget would be exceeded.
// A Redis error denies the call.
func (t *Tracker) TryConsume(ctx context.Context, provider string, calls int) error {
	if calls <= 0 {
		return nil
	}

	budget := t.backgroundBudget
	if IsInteractive(ctx) {
		budget = t.dailyBudget
	}

	day := t.dayStart()
	key := t.key(provider, day)
	ttlSeconds := int(t.keyTTL.Seconds())

	result, err := checkAndIncrScript.Run(ctx, t.redis, []string{key},
		calls, budget, ttlSeconds).Int64Slice()
	if err != nil {
		return fmt.Errorf("quota check for %s: %w", provider, err)
	}

	if result[0] != 1 {
		return fmt.Errorf("%w: provider %s used %d of %d", ErrQuotaExhausted, provider, result[1], budget)
	}
	return nil
}

// GetUsage returns current consumption for a provider.
func (t *Tracker) GetUsage(ctx context.Context, provider string) (*Usage, error) {
	day := t.dayStart()
	key := t.key(provider, day)

	used, err := t.redis.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("quota usage for %s: %w", provider, err)
	}

	remaining := t.dailyBudget - used
	if remaining < 0 {
		remaining = 0
	}
	return &Usage{
		Provider:  provider,
		Used:      used,
		Budget:    t.dailyBudget,
		Remaining: remaining,
		DayStart:  day,
	}, nil
}

// Remaining returns the number of calls left in the provider's budget today.
func (t *Tracker) Remaining(ctx context.Context, provider string) (int, error) {
	usage, err := t.GetUsage(ctx, provider)
	if err != nil {
		return 0, err
	}
	return usage.Remaining, nil
}

// DailyBudget returns the configured per-provider budget.
func (t *Tracker) DailyBudget() int {
	return t.dailyBudget
}
