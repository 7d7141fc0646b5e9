package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-ledger/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func logsEvery(start time.Time, every time.Duration, qty float64, n int) []UsageLog {
	logs := make([]UsageLog, n)
	for i := range logs {
		logs[i] = UsageLog{At: start.Add(time.Duration(i) * every), Quantity: qty}
	}
	return logs
}

func TestUsageRateConfidenceTiers(t *testing.T) {
	now := date(2025, time.June, 1)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		samples int
		want    types.ConfidenceTier
	}{
		{"two samples is none", 2, types.ConfidenceNone},
		{"three samples is low", 3, types.ConfidenceLow},
		{"ten samples is medium", 10, types.ConfidenceMedium},
		{"thirty samples is high", 30, types.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := logsEvery(now.Add(-time.Duration(tt.samples)*day), day, 1, tt.samples)
			rate := UsageRate(logs, DefaultWindow, now)
			assert.Equal(t, tt.want, rate.Confidence)
			assert.Equal(t, tt.samples, rate.Samples)
		})
	}
}

func TestUsageRateIgnoresLogsOutsideWindow(t *testing.T) {
	now := date(2025, time.June, 1)
	day := 24 * time.Hour

	// Five old logs well outside the 90-day window plus two fresh ones.
	logs := logsEvery(now.AddDate(0, 0, -200), day, 1, 5)
	logs = append(logs, logsEvery(now.Add(-2*day), day, 1, 2)...)

	rate := UsageRate(logs, DefaultWindow, now)
	assert.Equal(t, types.ConfidenceNone, rate.Confidence)
	assert.Equal(t, 2, rate.Samples)
}

func TestUsageRateComputesDailyConsumption(t *testing.T) {
	now := date(2025, time.June, 11)
	// One unit per day for the last 10 days.
	logs := logsEvery(now.AddDate(0, 0, -10), 24*time.Hour, 1, 10)

	rate := UsageRate(logs, DefaultWindow, now)
	assert.InDelta(t, 1.0, rate.PerDay, 0.01)
}

func TestRunOut(t *testing.T) {
	now := date(2025, time.June, 1)

	days, runOut, ok := RunOut(10, 0.5, now)
	require.True(t, ok)
	assert.InDelta(t, 20, days, 0.001)
	assert.Equal(t, date(2025, time.June, 21), runOut)

	_, _, ok = RunOut(10, 0, now)
	assert.False(t, ok)
}

func TestOrderByWalksBackThroughShippingWindow(t *testing.T) {
	// Run-out Friday 2025-06-20. Two delivery days counting weekends and one
	// dispatch day gives Tuesday the 17th.
	p := ShippingProfile{
		DispatchMaxDays:    1,
		DeliveryMaxDays:    2,
		DispatchesWeekends: true,
		DeliversWeekends:   true,
	}
	got := OrderBy(date(2025, time.June, 20), p, date(2025, time.June, 2))
	assert.Equal(t, date(2025, time.June, 17), got)
}

func TestOrderBySkipsNonDeliveringWeekends(t *testing.T) {
	// Run-out Monday 2025-06-23. Two delivery days that cannot fall on the
	// weekend walk back to Thursday the 19th; one weekday dispatch day lands
	// on Wednesday the 18th.
	p := ShippingProfile{
		DispatchMaxDays: 1,
		DeliveryMaxDays: 2,
	}
	got := OrderBy(date(2025, time.June, 23), p, date(2025, time.June, 2))
	assert.Equal(t, date(2025, time.June, 18), got)
}

func TestOrderByCutoffPushesToYesterday(t *testing.T) {
	p := ShippingProfile{
		DispatchMaxDays:    1,
		DeliveryMaxDays:    1,
		DispatchesWeekends: true,
		DeliversWeekends:   true,
		CutoffHour:         14,
	}
	runOut := date(2025, time.June, 20) // order-by lands on the 18th

	before := time.Date(2025, time.June, 18, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.June, 18), OrderBy(runOut, p, before))

	after := time.Date(2025, time.June, 18, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.June, 17), OrderBy(runOut, p, after))
}

func TestStatusBoundaries(t *testing.T) {
	now := date(2025, time.June, 10)

	toPtr := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name    string
		orderBy *time.Time
		want    types.ReorderStatus
	}{
		{"absent data", nil, types.ReorderNoData},
		{"strictly past is overdue", toPtr(date(2025, time.June, 9)), types.ReorderOverdue},
		{"today is order_now", toPtr(date(2025, time.June, 10)), types.ReorderNow},
		{"tomorrow is reorder_soon", toPtr(date(2025, time.June, 11)), types.ReorderSoon},
		{"seventh day is reorder_soon", toPtr(date(2025, time.June, 17)), types.ReorderSoon},
		{"eighth day is plenty", toPtr(date(2025, time.June, 18)), types.ReorderPlenty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.orderBy, now))
		})
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	now := date(2025, time.June, 11)
	logs := logsEvery(now.AddDate(0, 0, -10), 24*time.Hour, 1, 10)
	p := ShippingProfile{
		DispatchMaxDays:    2,
		DeliveryMaxDays:    3,
		DispatchesWeekends: true,
		DeliversWeekends:   true,
	}

	f := Evaluate(5, logs, p, DefaultWindow, now)
	require.NotNil(t, f.RunOutDate)
	require.NotNil(t, f.OrderByDate)
	assert.Equal(t, types.ConfidenceMedium, f.Rate.Confidence)
	// ~5 days of stock at 1/day; order-by 5 shipping days before run-out.
	assert.Equal(t, date(2025, time.June, 16), *f.RunOutDate)
	assert.Equal(t, date(2025, time.June, 11), *f.OrderByDate)
	assert.Equal(t, types.ReorderNow, f.Status)
}

func TestEvaluateWithoutHistory(t *testing.T) {
	f := Evaluate(5, nil, ShippingProfile{}, DefaultWindow, date(2025, time.June, 1))
	assert.Equal(t, types.ReorderNoData, f.Status)
	assert.Nil(t, f.RunOutDate)
	assert.Nil(t, f.OrderByDate)
}
