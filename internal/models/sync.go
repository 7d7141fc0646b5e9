package models

import "time"

// SyncTaskStatus records the health of one background sync task.
// The worker upserts a row after every run; consecutive failures
// accumulate until a run succeeds.
type SyncTaskStatus struct {
	Task                string     `json:"task" db:"task"`
	LastRunAt           *time.Time `json:"lastRunAt,omitempty" db:"last_run_at"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty" db:"last_success_at"`
	LastError           *string    `json:"lastError,omitempty" db:"last_error"`
	ConsecutiveFailures int        `json:"consecutiveFailures" db:"consecutive_failures"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}
