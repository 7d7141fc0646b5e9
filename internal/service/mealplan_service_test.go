package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/home-ledger/internal/errors"
)

func TestMealPlanService_Window(t *testing.T) {
	svc := NewMealPlanService(newMockNutritionRepo())
	svc.now = func() time.Time { return time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	plan, err := svc.Window(ctx, "user-1", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 29, 0, 0, 0, 0, time.UTC), plan.Window.Start)
	assert.Equal(t, time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), plan.Window.End)
	assert.Len(t, plan.ActiveDays, 9)
	assert.Empty(t, plan.Blackouts)
}

func TestMealPlanService_Window_SubtractsBlackouts(t *testing.T) {
	svc := NewMealPlanService(newMockNutritionRepo())
	ctx := context.Background()

	_, err := svc.CreateBlackout(ctx, &CreateBlackoutInput{
		UserID:    "user-1",
		StartDate: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
		Reason:    "away for the weekend",
	})
	require.NoError(t, err)

	anchor := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	plan, err := svc.Window(ctx, "user-1", anchor)
	require.NoError(t, err)

	require.Len(t, plan.Blackouts, 1)
	assert.Len(t, plan.ActiveDays, 6)
	for _, day := range plan.ActiveDays {
		assert.False(t,
			!day.Before(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)) &&
				!day.After(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)),
			"blacked-out day %s still active", day.Format("2006-01-02"))
	}
}

func TestMealPlanService_Window_IgnoresBlackoutOutsideWindow(t *testing.T) {
	svc := NewMealPlanService(newMockNutritionRepo())
	ctx := context.Background()

	_, err := svc.CreateBlackout(ctx, &CreateBlackoutInput{
		UserID:    "user-1",
		StartDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	plan, err := svc.Window(ctx, "user-1", time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, plan.ActiveDays, 9)
	assert.Empty(t, plan.Blackouts)
}

func TestMealPlanService_CreateBlackout_Validation(t *testing.T) {
	svc := NewMealPlanService(newMockNutritionRepo())
	ctx := context.Background()

	start := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateBlackout(ctx, &CreateBlackoutInput{UserID: "user-1", StartDate: start})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))

	_, err = svc.CreateBlackout(ctx, &CreateBlackoutInput{
		UserID:    "user-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, -1),
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
}

func TestMealPlanService_DeleteBlackout_NotFound(t *testing.T) {
	svc := NewMealPlanService(newMockNutritionRepo())

	err := svc.DeleteBlackout(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))
}
