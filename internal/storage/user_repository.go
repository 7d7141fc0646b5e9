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
	"github.com/home-ledger/internal/types"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := validateTier(user.Tier); err != nil {
		return err
	}

	paySettingsJSON, err := marshalPaySettings(user.Pay)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, email, tier, pay_settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Email,
		user.Tier,
		paySettingsJSON,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, tier, pay_settings, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.db.Pool().QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, tier, pay_settings, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.db.Pool().QueryRow(ctx, query, email))
}

func (r *UserRepository) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var paySettingsJSON []byte

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Tier,
		&paySettingsJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(paySettingsJSON) > 0 {
		var pay models.PaySettings
		if err := json.Unmarshal(paySettingsJSON, &pay); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pay settings: %w", err)
		}
		user.Pay = &pay
	}

	return &user, nil
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := validateTier(user.Tier); err != nil {
		return err
	}

	user.UpdatedAt = time.Now()

	paySettingsJSON, err := marshalPaySettings(user.Pay)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET email = $2, tier = $3, pay_settings = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Email,
		user.Tier,
		paySettingsJSON,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}

	return nil
}

// UpdatePaySettings replaces the user's salary schedule
func (r *UserRepository) UpdatePaySettings(ctx context.Context, userID string, pay *models.PaySettings) error {
	paySettingsJSON, err := marshalPaySettings(pay)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET pay_settings = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, paySettingsJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update pay settings: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// Delete deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	return nil
}

// List retrieves all users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, email, tier, pay_settings, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		var paySettingsJSON []byte

		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Tier,
			&paySettingsJSON,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if len(paySettingsJSON) > 0 {
			var pay models.PaySettings
			if err := json.Unmarshal(paySettingsJSON, &pay); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pay settings: %w", err)
			}
			user.Pay = &pay
		}

		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Exists checks if a user exists by ID
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// GetUserTier returns just the tier for a user
func (r *UserRepository) GetUserTier(ctx context.Context, userID string) (types.UserTier, error) {
	var tier types.UserTier
	query := `SELECT tier FROM users WHERE id = $1`

	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get user tier: %w", err)
	}

	return tier, nil
}

// UpsertGmailConnection stores or replaces the user's stored OAuth grant
func (r *UserRepository) UpsertGmailConnection(ctx context.Context, conn *models.GmailConnection) error {
	query := `
		INSERT INTO gmail_connections (user_id, refresh_token, email, connected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET refresh_token = $2, email = $3, connected_at = $4
	`

	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now()
	}

	_, err := r.db.Pool().Exec(ctx, query,
		conn.UserID,
		conn.RefreshToken,
		conn.Email,
		conn.ConnectedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert gmail connection: %w", err)
	}

	return nil
}

// GetGmailConnection retrieves the user's stored OAuth grant
func (r *UserRepository) GetGmailConnection(ctx context.Context, userID string) (*models.GmailConnection, error) {
	query := `
		SELECT user_id, refresh_token, email, connected_at
		FROM gmail_connections
		WHERE user_id = $1
	`

	var conn models.GmailConnection
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&conn.UserID,
		&conn.RefreshToken,
		&conn.Email,
		&conn.ConnectedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("gmail connection: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get gmail connection: %w", err)
	}

	return &conn, nil
}

// ListGmailConnections retrieves all stored OAuth grants, for the mail sync task
func (r *UserRepository) ListGmailConnections(ctx context.Context) ([]*models.GmailConnection, error) {
	query := `
		SELECT user_id, refresh_token, email, connected_at
		FROM gmail_connections
		ORDER BY connected_at
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.GmailConnection
	for rows.Next() {
		var conn models.GmailConnection
		if err := rows.Scan(&conn.UserID, &conn.RefreshToken, &conn.Email, &conn.ConnectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gmail connection: %w", err)
		}
		conns = append(conns, &conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gmail connections: %w", err)
	}

	return conns, nil
}

// DeleteGmailConnection removes the user's stored OAuth grant
func (r *UserRepository) DeleteGmailConnection(ctx context.Context, userID string) error {
	query := `DELETE FROM gmail_connections WHERE user_id = $1`

	result, err := r.db.Pool().Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete gmail connection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("gmail connection: %w", ErrNotFound)
	}

	return nil
}

func marshalPaySettings(pay *models.PaySettings) ([]byte, error) {
	if pay == nil {
		return nil, nil
	}
	data, err := json.Marshal(pay)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay settings: %w", err)
	}
	return data, nil
}

// validateTier validates that the tier is one of the allowed values
func validateTier(tier types.UserTier) error {
	switch tier {
	case types.TierFree, types.TierPaid:
		return nil
	default:
		return &types.ServiceError{
			Code:    "INVALID_TIER",
			Message: fmt.Sprintf("invalid tier: %s (must be 'free' or 'paid')", tier),
			Details: map[string]interface{}{
				"tier":          tier,
				"allowed_tiers": []string{string(types.TierFree), string(types.TierPaid)},
			},
		}
	}
}
