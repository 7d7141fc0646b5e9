package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/home-ledger/internal/models"
)

// SyncStatusRepository persists per-task background sync health
type SyncStatusRepository struct {
	db *PostgresDB
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(db *PostgresDB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// RecordSuccess marks a task run as successful and clears its failure streak
func (r *SyncStatusRepository) RecordSuccess(ctx context.Context, task string) error {
	now := time.Now()

	query := `
		INSERT INTO sync_task_status (
			task, last_run_at, last_success_at, last_error,
			consecutive_failures, updated_at
		)
		VALUES ($1, $2, $2, NULL, 0, $2)
		ON CONFLICT (task)
		DO UPDATE SET last_run_at = $2, last_success_at = $2,
			last_error = NULL, consecutive_failures = 0, updated_at = $2
	`

	_, err := r.db.Pool().Exec(ctx, query, task, now)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}

	return nil
}

// RecordFailure marks a task run as failed and bumps its failure streak
func (r *SyncStatusRepository) RecordFailure(ctx context.Context, task string, runErr error) error {
	now := time.Now()
	message := runErr.Error()

	query := `
		INSERT INTO sync_task_status (
			task, last_run_at, last_success_at, last_error,
			consecutive_failures, updated_at
		)
		VALUES ($1, $2, NULL, $3, 1, $2)
		ON CONFLICT (task)
		DO UPDATE SET last_run_at = $2, last_error = $3,
			consecutive_failures = sync_task_status.consecutive_failures + 1,
			updated_at = $2
	`

	_, err := r.db.Pool().Exec(ctx, query, task, now, message)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}

	return nil
}

// Get retrieves the status of one task
func (r *SyncStatusRepository) Get(ctx context.Context, task string) (*models.SyncTaskStatus, error) {
	query := `
		SELECT task, last_run_at, last_success_at, last_error,
			   consecutive_failures, updated_at
		FROM sync_task_status
		WHERE task = $1
	`

	var status models.SyncTaskStatus
	err := r.db.Pool().QueryRow(ctx, query, task).Scan(
		&status.Task,
		&status.LastRunAt,
		&status.LastSuccessAt,
		&status.LastError,
		&status.ConsecutiveFailures,
		&status.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return &status, nil
}

// List retrieves the status of every known task
func (r *SyncStatusRepository) List(ctx context.Context) ([]*models.SyncTaskStatus, error) {
	query := `
		SELECT task, last_run_at, last_success_at, last_error,
			   consecutive_failures, updated_at
		FROM sync_task_status
		ORDER BY task
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*models.SyncTaskStatus
	for rows.Next() {
		var status models.SyncTaskStatus
		err := rows.Scan(
			&status.Task,
			&status.LastRunAt,
			&status.LastSuccessAt,
			&status.LastError,
			&status.ConsecutiveFailures,
			&status.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		statuses = append(statuses, &status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync statuses: %w", err)
	}

	return statuses, nil
}
