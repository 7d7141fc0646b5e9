package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
)

// NutritionRepository handles weekly nutrition targets and meal plan blackouts
type NutritionRepository struct {
	db *PostgresDB
}

// NewNutritionRepository creates a new nutrition repository
func NewNutritionRepository(db *PostgresDB) *NutritionRepository {
	return &NutritionRepository{db: db}
}

// UpsertWeeklyTarget stores computed targets for one shopping week,
// replacing an earlier calculation for the same week.
func (r *NutritionRepository) UpsertWeeklyTarget(ctx context.Context, target *models.WeeklyNutritionTarget) error {
	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	target.CreatedAt = time.Now()

	targetsJSON, err := json.Marshal(target.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal targets: %w", err)
	}
	inputsJSON, err := json.Marshal(target.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}

	query := `
		INSERT INTO weekly_nutrition_targets (id, user_id, week_start, targets, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, week_start)
		DO UPDATE SET targets = $4, inputs = $5, created_at = $6
	`

	_, err = r.db.Pool().Exec(ctx, query,
		target.ID,
		target.UserID,
		target.WeekStart,
		targetsJSON,
		inputsJSON,
		target.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert weekly target: %w", err)
	}

	return nil
}

// GetWeeklyTarget retrieves the stored targets for a week
func (r *NutritionRepository) GetWeeklyTarget(ctx context.Context, userID string, weekStart time.Time) (*models.WeeklyNutritionTarget, error) {
	query := `
		SELECT id, user_id, week_start, targets, inputs, created_at
		FROM weekly_nutrition_targets
		WHERE user_id = $1 AND week_start = $2
	`

	var target models.WeeklyNutritionTarget
	var targetsJSON, inputsJSON []byte

	err := r.db.Pool().QueryRow(ctx, query, userID, weekStart).Scan(
		&target.ID,
		&target.UserID,
		&target.WeekStart,
		&targetsJSON,
		&inputsJSON,
		&target.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("weekly nutrition target: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get weekly target: %w", err)
	}

	if err := json.Unmarshal(targetsJSON, &target.Targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal targets: %w", err)
	}
	if err := json.Unmarshal(inputsJSON, &target.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}

	return &target, nil
}

// ListWeeklyTargets retrieves a user's stored targets, newest week first
func (r *NutritionRepository) ListWeeklyTargets(ctx context.Context, userID string, limit int) ([]*models.WeeklyNutritionTarget, error) {
	if limit <= 0 {
		limit = 26
	}

	query := `
		SELECT id, user_id, week_start, targets, inputs, created_at
		FROM weekly_nutrition_targets
		WHERE user_id = $1
		ORDER BY week_start DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly targets: %w", err)
	}
	defer rows.Close()

	var targets []*models.WeeklyNutritionTarget
	for rows.Next() {
		var target models.WeeklyNutritionTarget
		var targetsJSON, inputsJSON []byte

		err := rows.Scan(
			&target.ID,
			&target.UserID,
			&target.WeekStart,
			&targetsJSON,
			&inputsJSON,
			&target.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly target: %w", err)
		}

		if err := json.Unmarshal(targetsJSON, &target.Targets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal targets: %w", err)
		}
		if err := json.Unmarshal(inputsJSON, &target.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
		}

		targets = append(targets, &target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weekly targets: %w", err)
	}

	return targets, nil
}

// CreateBlackout removes a date range from meal planning
func (r *NutritionRepository) CreateBlackout(ctx context.Context, blackout *models.MealPlanBlackout) error {
	if blackout.ID == "" {
		blackout.ID = uuid.New().String()
	}
	blackout.CreatedAt = time.Now()

	query := `
		INSERT INTO meal_plan_blackouts (id, user_id, start_date, end_date, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		blackout.ID,
		blackout.UserID,
		blackout.StartDate,
		blackout.EndDate,
		blackout.Reason,
		blackout.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create blackout: %w", err)
	}

	return nil
}

// ListBlackoutsOverlapping retrieves blackouts that intersect [from, to]
func (r *NutritionRepository) ListBlackoutsOverlapping(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlanBlackout, error) {
	query := `
		SELECT id, user_id, start_date, end_date, reason, created_at
		FROM meal_plan_blackouts
		WHERE user_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list blackouts: %w", err)
	}
	defer rows.Close()

	var blackouts []*models.MealPlanBlackout
	for rows.Next() {
		var b models.MealPlanBlackout
		if err := rows.Scan(&b.ID, &b.UserID, &b.StartDate, &b.EndDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blackout: %w", err)
		}
		blackouts = append(blackouts, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blackouts: %w", err)
	}

	return blackouts, nil
}

// DeleteBlackout deletes a blackout owned by the user
func (r *NutritionRepository) DeleteBlackout(ctx context.Context, userID, id string) error {
	query := `DELETE FROM meal_plan_blackouts WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete blackout: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("blackout %s: %w", id, ErrNotFound)
	}

	return nil
}
