package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/paycycle"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

func newServiceTestCache(t *testing.T) *storage.CacheService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return storage.NewCacheService(storage.NewRedisCacheFromClient(client), 5*time.Minute)
}

func newTestBillService(t *testing.T) (*BillService, *mockBillRepo, *mockUserRepo, *mockTxSummer) {
	t.Helper()

	bills := newMockBillRepo()
	users := newMockUserRepo()
	txs := &mockTxSummer{}
	svc := NewBillService(bills, users, txs, nil)
	return svc, bills, users, txs
}

func TestBillService_CreateBill(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)
	ctx := context.Background()

	bill, err := svc.CreateBill(ctx, &CreateBillInput{
		UserID:    "user-1",
		Name:      "Council Tax",
		Amount:    decimal.RequireFromString("165.00"),
		DueDay:    1,
		Frequency: types.FrequencyMonthly,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, bill.ID)
	assert.True(t, bill.Active)
	assert.Equal(t, types.FrequencyMonthly, bill.Frequency)
}

func TestBillService_CreateBill_Validation(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)

	tests := []struct {
		name  string
		input *CreateBillInput
	}{
		{"missing user", &CreateBillInput{Name: "x", DueDay: 1, Frequency: types.FrequencyMonthly}},
		{"missing name", &CreateBillInput{UserID: "u", DueDay: 1, Frequency: types.FrequencyMonthly}},
		{"negative amount", &CreateBillInput{UserID: "u", Name: "x", Amount: decimal.RequireFromString("-1"), DueDay: 1, Frequency: types.FrequencyMonthly}},
		{"due day zero", &CreateBillInput{UserID: "u", Name: "x", DueDay: 0, Frequency: types.FrequencyMonthly}},
		{"due day too big", &CreateBillInput{UserID: "u", Name: "x", DueDay: 32, Frequency: types.FrequencyMonthly}},
		{"bad frequency", &CreateBillInput{UserID: "u", Name: "x", DueDay: 1, Frequency: "fortnightly-ish"}},
		{"end before start", &CreateBillInput{UserID: "u", Name: "x", DueDay: 1, Frequency: types.FrequencyMonthly, StartDate: &start, EndDate: &end}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBill(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsUserError(err))
			assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
		})
	}
}

func TestBillService_GetBill_NotFound(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)

	_, err := svc.GetBill(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))
}

func TestBillService_GetBill_OtherUser(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)
	ctx := context.Background()

	bill, err := svc.CreateBill(ctx, &CreateBillInput{
		UserID: "user-1", Name: "Rent", Amount: decimal.RequireFromString("900"),
		DueDay: 1, Frequency: types.FrequencyMonthly,
	})
	require.NoError(t, err)

	_, err = svc.GetBill(ctx, "user-2", bill.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))
}

func TestBillService_MonthOccurrences_Sorted(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)
	ctx := context.Background()

	for _, b := range []struct {
		name   string
		dueDay int
	}{
		{"Broadband", 28},
		{"Council Tax", 1},
		{"Water", 15},
	} {
		_, err := svc.CreateBill(ctx, &CreateBillInput{
			UserID: "user-1", Name: b.name, Amount: decimal.RequireFromString("50"),
			DueDay: b.dueDay, Frequency: types.FrequencyMonthly,
		})
		require.NoError(t, err)
	}

	occurrences, err := svc.MonthOccurrences(ctx, "user-1", 2025, time.July)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)

	assert.Equal(t, "Council Tax", occurrences[0].Name)
	assert.Equal(t, "Water", occurrences[1].Name)
	assert.Equal(t, "Broadband", occurrences[2].Name)
}

func TestBillService_MonthOccurrences_SkipsInactive(t *testing.T) {
	svc, bills, _, _ := newTestBillService(t)
	ctx := context.Background()

	bill, err := svc.CreateBill(ctx, &CreateBillInput{
		UserID: "user-1", Name: "Gym", Amount: decimal.RequireFromString("30"),
		DueDay: 5, Frequency: types.FrequencyMonthly,
	})
	require.NoError(t, err)

	stored := bills.bills[bill.ID]
	stored.Active = false

	occurrences, err := svc.MonthOccurrences(ctx, "user-1", 2025, time.July)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestBillService_CurrentCycleSummary(t *testing.T) {
	svc, _, users, txs := newTestBillService(t)
	ctx := context.Background()

	user := &models.User{
		Email: "sam@example.com",
		Tier:  types.TierFree,
		Pay:   &models.PaySettings{PaydayDay: 25, AdjustRule: paycycle.RuleNone},
	}
	require.NoError(t, users.Create(ctx, user))

	txs.in = decimal.RequireFromString("2400.00")
	txs.out = decimal.RequireFromString("1850.50")

	// ref 10 Jul 2025: cycle runs 25 Jun to 24 Jul
	svc.now = func() time.Time { return time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC) }

	_, err := svc.CreateBill(ctx, &CreateBillInput{
		UserID: user.ID, Name: "Rent", Amount: decimal.RequireFromString("900"),
		DueDay: 1, Frequency: types.FrequencyMonthly,
	})
	require.NoError(t, err)
	_, err = svc.CreateBill(ctx, &CreateBillInput{
		UserID: user.ID, Name: "Car Insurance", Amount: decimal.RequireFromString("480"),
		DueDay: 1, Frequency: types.FrequencyAnnual,
	})
	require.NoError(t, err)

	summary, err := svc.CurrentCycleSummary(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC), summary.CycleStart)
	assert.Equal(t, time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC), summary.CycleEnd)
	assert.True(t, summary.Net.Equal(decimal.RequireFromString("549.50")), "net = in - out, got %s", summary.Net)
	assert.Equal(t, 15, summary.RemainingDay)

	// monthly rent falls due on 1 Jul inside the cycle; the annual policy
	// anchored on 1 Jan does not
	require.Len(t, summary.BillsDue, 1)
	assert.Equal(t, "Rent", summary.BillsDue[0].Name)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), summary.BillsDue[0].DueOn)
	assert.True(t, summary.BillsDueSum.Equal(decimal.RequireFromString("900")))
}

func TestBillService_CurrentCycleSummary_NoPaySettings(t *testing.T) {
	svc, _, users, _ := newTestBillService(t)
	ctx := context.Background()

	user := &models.User{Email: "sam@example.com", Tier: types.TierFree}
	require.NoError(t, users.Create(ctx, user))

	_, err := svc.CurrentCycleSummary(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
	assert.Contains(t, err.Error(), "pay settings")
}

func TestBillService_CurrentCycleSummary_Cached(t *testing.T) {
	bills := newMockBillRepo()
	users := newMockUserRepo()
	txs := &mockTxSummer{in: decimal.RequireFromString("100"), out: decimal.Zero}
	cache := newServiceTestCache(t)
	svc := NewBillService(bills, users, txs, cache)
	svc.now = func() time.Time { return time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	user := &models.User{
		Email: "sam@example.com",
		Pay:   &models.PaySettings{PaydayDay: 25, AdjustRule: paycycle.RuleNone},
	}
	require.NoError(t, users.Create(ctx, user))

	first, err := svc.CurrentCycleSummary(ctx, user.ID)
	require.NoError(t, err)

	// a later ledger change is invisible until the cache entry expires
	txs.in = decimal.RequireFromString("9999")

	second, err := svc.CurrentCycleSummary(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, second.In.Equal(first.In))
}

func TestBillService_UpdateBill(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)
	ctx := context.Background()

	bill, err := svc.CreateBill(ctx, &CreateBillInput{
		UserID: "user-1", Name: "Broadband", Amount: decimal.RequireFromString("32"),
		DueDay: 28, Frequency: types.FrequencyMonthly,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateBill(ctx, "user-1", bill.ID, &UpdateBillInput{
		Name: "Broadband", Amount: decimal.RequireFromString("36.50"),
		DueDay: 28, Frequency: types.FrequencyMonthly, Active: false,
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.RequireFromString("36.50")))
	assert.False(t, updated.Active)
}

func TestBillService_DeleteBill_NotFound(t *testing.T) {
	svc, _, _, _ := newTestBillService(t)

	err := svc.DeleteBill(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))
}
