package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/mealplan"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/nutrition"
	"github.com/home-ledger/internal/storage"
)

// NutritionRepository is the storage surface NutritionService needs
type NutritionRepository interface {
	UpsertWeeklyTarget(ctx context.Context, target *models.WeeklyNutritionTarget) error
	GetWeeklyTarget(ctx context.Context, userID string, weekStart time.Time) (*models.WeeklyNutritionTarget, error)
	ListWeeklyTargets(ctx context.Context, userID string, limit int) ([]*models.WeeklyNutritionTarget, error)
}

// NutritionService computes and persists weekly nutrition targets
type NutritionService struct {
	targets NutritionRepository
	now     func() time.Time
}

// NewNutritionService creates a new nutrition service
func NewNutritionService(targets NutritionRepository) *NutritionService {
	return &NutritionService{targets: targets, now: time.Now}
}

// ComputeTargetsInput represents input for a target calculation
type ComputeTargetsInput struct {
	UserID  string            `json:"userId"`
	Profile nutrition.Profile `json:"profile"`
	Anchor  *time.Time        `json:"anchor,omitempty"` // defaults to today
}

// ComputeTargets calculates daily targets from the profile and persists them
// against the shopping week containing the anchor date. Recomputing for the
// same week overwrites the stored row.
func (s *NutritionService) ComputeTargets(ctx context.Context, input *ComputeTargetsInput) (*models.WeeklyNutritionTarget, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}

	targets, err := nutrition.Calculate(input.Profile)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("profile", err.Error())
	}

	anchor := s.now()
	if input.Anchor != nil {
		anchor = *input.Anchor
	}
	week := mealplan.WindowFor(anchor)

	row := &models.WeeklyNutritionTarget{
		UserID:    input.UserID,
		WeekStart: week.Start,
		Targets:   targets,
		Inputs:    input.Profile,
	}
	if err := s.targets.UpsertWeeklyTarget(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store weekly target: %w", err)
	}
	return row, nil
}

// GetWeekTargets returns the stored targets for the week containing anchor
func (s *NutritionService) GetWeekTargets(ctx context.Context, userID string, anchor time.Time) (*models.WeeklyNutritionTarget, error) {
	week := mealplan.WindowFor(anchor)
	row, err := s.targets.GetWeeklyTarget(ctx, userID, week.Start)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("weekly target", week.Start.Format("2006-01-02"))
		}
		return nil, err
	}
	return row, nil
}

// ListTargets returns recent weekly targets, newest first
func (s *NutritionService) ListTargets(ctx context.Context, userID string, limit int) ([]*models.WeeklyNutritionTarget, error) {
	return s.targets.ListWeeklyTargets(ctx, userID, limit)
}
