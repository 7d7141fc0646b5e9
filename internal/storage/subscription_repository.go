package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/home-ledger/internal/models"
)

// SubscriptionRepository handles tracked services and their comparison results
type SubscriptionRepository struct {
	db *PostgresDB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *PostgresDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create creates a new tracked service
func (r *SubscriptionRepository) Create(ctx context.Context, svc *models.TrackedService) error {
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}

	now := time.Now()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	query := `
		INSERT INTO tracked_services (
			id, user_id, name, kind, monthly_cost, contract_end_date,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		svc.ID,
		svc.UserID,
		svc.Name,
		svc.Kind,
		svc.MonthlyCost,
		svc.ContractEndDate,
		svc.CreatedAt,
		svc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create tracked service: %w", err)
	}

	return nil
}

// GetByID retrieves a tracked service owned by the user
func (r *SubscriptionRepository) GetByID(ctx context.Context, userID, id string) (*models.TrackedService, error) {
	query := `
		SELECT id, user_id, name, kind, monthly_cost, contract_end_date,
			   created_at, updated_at
		FROM tracked_services
		WHERE id = $1 AND user_id = $2
	`

	var svc models.TrackedService
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&svc.ID,
		&svc.UserID,
		&svc.Name,
		&svc.Kind,
		&svc.MonthlyCost,
		&svc.ContractEndDate,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tracked service %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tracked service: %w", err)
	}

	return &svc, nil
}

// List retrieves all tracked services for a user
func (r *SubscriptionRepository) List(ctx context.Context, userID string) ([]*models.TrackedService, error) {
	query := `
		SELECT id, user_id, name, kind, monthly_cost, contract_end_date,
			   created_at, updated_at
		FROM tracked_services
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked services: %w", err)
	}
	defer rows.Close()

	var services []*models.TrackedService
	for rows.Next() {
		var svc models.TrackedService
		err := rows.Scan(
			&svc.ID,
			&svc.UserID,
			&svc.Name,
			&svc.Kind,
			&svc.MonthlyCost,
			&svc.ContractEndDate,
			&svc.CreatedAt,
			&svc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked service: %w", err)
		}
		services = append(services, &svc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked services: %w", err)
	}

	return services, nil
}

// Update updates an existing tracked service owned by the user
func (r *SubscriptionRepository) Update(ctx context.Context, svc *models.TrackedService) error {
	svc.UpdatedAt = time.Now()

	query := `
		UPDATE tracked_services
		SET name = $3, kind = $4, monthly_cost = $5, contract_end_date = $6,
			updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		svc.ID,
		svc.UserID,
		svc.Name,
		svc.Kind,
		svc.MonthlyCost,
		svc.ContractEndDate,
		svc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update tracked service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tracked service %s: %w", svc.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a tracked service owned by the user
func (r *SubscriptionRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM tracked_services WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tracked service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tracked service %s: %w", id, ErrNotFound)
	}

	return nil
}

// AddComparisonResult records the best alternative found during a review
func (r *SubscriptionRepository) AddComparisonResult(ctx context.Context, result *models.ComparisonResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now()
	}

	query := `
		INSERT INTO comparison_results (
			id, service_id, user_id, checked_at, best_alternative,
			best_monthly_cost, saving_per_month
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		result.ID,
		result.ServiceID,
		result.UserID,
		result.CheckedAt,
		result.BestAlternative,
		result.BestMonthlyCost,
		result.SavingPerMonth,
	)

	if err != nil {
		return fmt.Errorf("failed to add comparison result: %w", err)
	}

	return nil
}

// LatestComparison retrieves the most recent comparison result for a service
func (r *SubscriptionRepository) LatestComparison(ctx context.Context, userID, serviceID string) (*models.ComparisonResult, error) {
	query := `
		SELECT id, service_id, user_id, checked_at, best_alternative,
			   best_monthly_cost, saving_per_month
		FROM comparison_results
		WHERE service_id = $1 AND user_id = $2
		ORDER BY checked_at DESC
		LIMIT 1
	`

	var result models.ComparisonResult
	err := r.db.Pool().QueryRow(ctx, query, serviceID, userID).Scan(
		&result.ID,
		&result.ServiceID,
		&result.UserID,
		&result.CheckedAt,
		&result.BestAlternative,
		&result.BestMonthlyCost,
		&result.SavingPerMonth,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("comparison result: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comparison result: %w", err)
	}

	return &result, nil
}
