package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider error")

func testConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      3,
		FailureThreshold: 0.5,
		Timeout:          20 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
}

func fail(ctx context.Context) error { return errProvider }
func ok(ctx context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(testConfig("tracking"), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, fail)
		assert.ErrorIs(t, err, errProvider)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(ctx, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_StaysClosedUnderThreshold(t *testing.T) {
	cb := New(testConfig("quotes"), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = cb.Execute(ctx, ok)
	}
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, ok)

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := New(testConfig("meter"), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(30 * time.Millisecond)

	// First probe transitions to half-open
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	// Second successful probe closes the circuit
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(testConfig("mail"), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(ctx, fail)
	assert.ErrorIs(t, err, errProvider)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(testConfig("tracking"), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(ctx, ok))
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(nil)

	cb1 := m.GetOrCreate("tracking", nil)
	cb2 := m.GetOrCreate("tracking", testConfig("tracking"))
	assert.Same(t, cb1, cb2)

	_, err := m.Get("quotes")
	assert.Error(t, err)

	m.GetOrCreate("quotes", nil)
	got, err := m.Get("quotes")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, got.GetState())

	stats := m.GetAllStats()
	assert.Len(t, stats, 2)
	assert.Equal(t, "tracking", stats["tracking"].Name)
}
