package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, budget int) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker, err := NewTracker(&Config{
		Redis:       client,
		DailyBudget: budget,
	})
	require.NoError(t, err)
	return tracker, mr
}

func TestNewTracker_Validation(t *testing.T) {
	_, err := NewTracker(nil)
	assert.Error(t, err)

	_, err = NewTracker(&Config{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err = NewTracker(&Config{Redis: client, DailyBudget: -1})
	assert.Error(t, err)

	_, err = NewTracker(&Config{Redis: client, InteractiveReserve: -0.1})
	assert.Error(t, err)

	_, err = NewTracker(&Config{Redis: client, InteractiveReserve: 1})
	assert.Error(t, err)

	tracker, err := NewTracker(&Config{Redis: client})
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyBudget, tracker.DailyBudget())
}

func TestTryConsume_WithinBudget(t *testing.T) {
	tracker, _ := newTestTracker(t, 5)
	ctx := WithInteractive(context.Background())

	for i := 0; i < 5; i++ {
		assert.NoError(t, tracker.TryConsume(ctx, "tracking", 1))
	}

	err := tracker.TryConsume(ctx, "tracking", 1)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestTryConsume_BackgroundLeavesInteractiveReserve(t *testing.T) {
	// Budget 10 with the default 0.2 reserve caps background callers at 8.
	tracker, _ := newTestTracker(t, 10)
	background := context.Background()
	interactive := WithInteractive(context.Background())

	for i := 0; i < 8; i++ {
		require.NoError(t, tracker.TryConsume(background, "tracking", 1))
	}
	assert.ErrorIs(t, tracker.TryConsume(background, "tracking", 1), ErrQuotaExhausted)

	// Interactive calls spend into the reserve, up to the full budget.
	assert.NoError(t, tracker.TryConsume(interactive, "tracking", 1))
	assert.NoError(t, tracker.TryConsume(interactive, "tracking", 1))
	assert.ErrorIs(t, tracker.TryConsume(interactive, "tracking", 1), ErrQuotaExhausted)
}

func TestTryConsume_ConfiguredReserve(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker, err := NewTracker(&Config{Redis: client, DailyBudget: 10, InteractiveReserve: 0.5})
	require.NoError(t, err)

	background := context.Background()
	require.NoError(t, tracker.TryConsume(background, "tracking", 5))
	assert.ErrorIs(t, tracker.TryConsume(background, "tracking", 1), ErrQuotaExhausted)
	assert.NoError(t, tracker.TryConsume(WithInteractive(background), "tracking", 5))
}

func TestTryConsume_MultiCallBatch(t *testing.T) {
	tracker, _ := newTestTracker(t, 10)
	ctx := context.Background()

	require.NoError(t, tracker.TryConsume(ctx, "tracking", 8))

	// A batch that would overflow is rejected without consuming anything
	err := tracker.TryConsume(ctx, "tracking", 3)
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	remaining, err := tracker.Remaining(ctx, "tracking")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestTryConsume_ZeroCallsIsFree(t *testing.T) {
	tracker, _ := newTestTracker(t, 1)
	ctx := context.Background()

	assert.NoError(t, tracker.TryConsume(ctx, "tracking", 0))

	usage, err := tracker.GetUsage(ctx, "tracking")
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)
}

func TestTryConsume_ProvidersAreIndependent(t *testing.T) {
	tracker, _ := newTestTracker(t, 2)
	ctx := WithInteractive(context.Background())

	require.NoError(t, tracker.TryConsume(ctx, "tracking", 2))
	assert.ErrorIs(t, tracker.TryConsume(ctx, "tracking", 1), ErrQuotaExhausted)

	assert.NoError(t, tracker.TryConsume(ctx, "quotes", 1))
}

func TestTryConsume_ResetsNextDay(t *testing.T) {
	tracker, _ := newTestTracker(t, 2)
	ctx := WithInteractive(context.Background())

	base := time.Date(2025, 6, 23, 15, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	require.NoError(t, tracker.TryConsume(ctx, "tracking", 2))
	assert.ErrorIs(t, tracker.TryConsume(ctx, "tracking", 1), ErrQuotaExhausted)

	// Next day uses a fresh key
	tracker.now = func() time.Time { return base.Add(24 * time.Hour) }
	assert.NoError(t, tracker.TryConsume(ctx, "tracking", 1))
}

func TestGetUsage(t *testing.T) {
	tracker, _ := newTestTracker(t, 10)
	ctx := context.Background()

	usage, err := tracker.GetUsage(ctx, "tracking")
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)
	assert.Equal(t, 10, usage.Remaining)

	require.NoError(t, tracker.TryConsume(ctx, "tracking", 4))

	usage, err = tracker.GetUsage(ctx, "tracking")
	require.NoError(t, err)
	assert.Equal(t, 4, usage.Used)
	assert.Equal(t, 6, usage.Remaining)
	assert.Equal(t, 10, usage.Budget)
}

func TestTryConsume_RedisDownDeniesCall(t *testing.T) {
	tracker, mr := newTestTracker(t, 10)
	ctx := context.Background()

	mr.Close()

	err := tracker.TryConsume(ctx, "tracking", 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuotaExhausted)
}
