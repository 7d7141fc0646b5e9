package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/mealplan"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
)

// BlackoutRepository is the storage surface MealPlanService needs
type BlackoutRepository interface {
	CreateBlackout(ctx context.Context, blackout *models.MealPlanBlackout) error
	ListBlackoutsOverlapping(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlanBlackout, error)
	DeleteBlackout(ctx context.Context, userID, id string) error
}

// MealPlanService handles shopping-week windows and blackout dates
type MealPlanService struct {
	blackouts BlackoutRepository
	now       func() time.Time
}

// NewMealPlanService creates a new meal plan service
func NewMealPlanService(blackouts BlackoutRepository) *MealPlanService {
	return &MealPlanService{blackouts: blackouts, now: time.Now}
}

// WeekPlan is a shopping-week window with its plannable days resolved
type WeekPlan struct {
	Window     mealplan.Window            `json:"window"`
	ActiveDays []time.Time                `json:"activeDays"`
	Blackouts  []*models.MealPlanBlackout `json:"blackouts"`
}

// Window resolves the shopping week containing anchor and subtracts any
// blackout days. A zero anchor means today.
func (s *MealPlanService) Window(ctx context.Context, userID string, anchor time.Time) (*WeekPlan, error) {
	if anchor.IsZero() {
		anchor = s.now()
	}
	window := mealplan.WindowFor(anchor)

	rows, err := s.blackouts.ListBlackoutsOverlapping(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	blackouts := make([]mealplan.Blackout, 0, len(rows))
	for _, row := range rows {
		blackouts = append(blackouts, mealplan.Blackout{Start: row.StartDate, End: row.EndDate})
	}

	return &WeekPlan{
		Window:     window,
		ActiveDays: window.ActiveDays(blackouts),
		Blackouts:  rows,
	}, nil
}

// CreateBlackoutInput represents input for removing dates from planning
type CreateBlackoutInput struct {
	UserID    string    `json:"userId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason"`
}

// CreateBlackout removes a date range from meal planning
func (s *MealPlanService) CreateBlackout(ctx context.Context, input *CreateBlackoutInput) (*models.MealPlanBlackout, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, apperrors.NewInvalidParameterError("dates", "startDate and endDate must be set")
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, apperrors.NewInvalidParameterError("endDate", "must not be before startDate")
	}

	blackout := &models.MealPlanBlackout{
		UserID:    input.UserID,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Reason:    input.Reason,
	}
	if err := s.blackouts.CreateBlackout(ctx, blackout); err != nil {
		return nil, fmt.Errorf("failed to create blackout: %w", err)
	}
	return blackout, nil
}

// ListBlackouts returns blackouts overlapping a date range
func (s *MealPlanService) ListBlackouts(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlanBlackout, error) {
	if !from.Before(to) {
		return nil, apperrors.NewInvalidParameterError("from", "must be before to")
	}
	return s.blackouts.ListBlackoutsOverlapping(ctx, userID, from, to)
}

// DeleteBlackout removes one blackout
func (s *MealPlanService) DeleteBlackout(ctx context.Context, userID, id string) error {
	if err := s.blackouts.DeleteBlackout(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("blackout", id)
		}
		return err
	}
	return nil
}
