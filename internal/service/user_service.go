package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/paycycle"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// UserRepository is the storage surface UserService needs
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePaySettings(ctx context.Context, userID string, pay *models.PaySettings) error
	Delete(ctx context.Context, id string) error
	GetUserTier(ctx context.Context, userID string) (types.UserTier, error)
	UpsertGmailConnection(ctx context.Context, conn *models.GmailConnection) error
	GetGmailConnection(ctx context.Context, userID string) (*models.GmailConnection, error)
	DeleteGmailConnection(ctx context.Context, userID string) error
}

// UserService handles user accounts and their settings
type UserService struct {
	users UserRepository
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users, now: time.Now}
}

// CreateUserInput represents input for registering a household member
type CreateUserInput struct {
	Email string         `json:"email"`
	Tier  types.UserTier `json:"tier,omitempty"`
}

// CreateUser registers a new user. Tier defaults to free.
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewInvalidParameterError("email", "must be a valid email address")
	}
	tier := input.Tier
	if tier == "" {
		tier = types.TierFree
	}
	if tier != types.TierFree && tier != types.TierPaid {
		return nil, apperrors.NewInvalidParameterError("tier", fmt.Sprintf("unknown tier %q", tier))
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflictError(fmt.Sprintf("user with email %s already exists", email))
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user := &models.User{Email: email, Tier: tier}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser returns one user
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return user, nil
}

// GetTier returns a user's rate-limit tier
func (s *UserService) GetTier(ctx context.Context, userID string) (types.UserTier, error) {
	tier, err := s.users.GetUserTier(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.NewNotFoundError("user", userID)
		}
		return "", err
	}
	return tier, nil
}

// UpdatePaySettings stores the user's salary schedule
func (s *UserService) UpdatePaySettings(ctx context.Context, userID string, pay *models.PaySettings) (*models.User, error) {
	if pay == nil {
		return nil, apperrors.NewInvalidParameterError("paySettings", "must not be empty")
	}
	if pay.PaydayDay < 1 || pay.PaydayDay > 31 {
		return nil, apperrors.NewInvalidParameterError("paydayDay", "must be between 1 and 31")
	}
	if !paycycle.ValidRule(pay.AdjustRule) {
		return nil, apperrors.NewInvalidParameterError("adjustRule", fmt.Sprintf("unknown rule %q", pay.AdjustRule))
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdatePaySettings(ctx, userID, pay); err != nil {
		return nil, fmt.Errorf("failed to update pay settings: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// ConnectGmail stores the OAuth grant obtained in the callback
func (s *UserService) ConnectGmail(ctx context.Context, userID, email, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.NewInvalidParameterError("refreshToken", "must not be empty")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	conn := &models.GmailConnection{
		UserID:       userID,
		RefreshToken: refreshToken,
		Email:        email,
		ConnectedAt:  s.now(),
	}
	if err := s.users.UpsertGmailConnection(ctx, conn); err != nil {
		return fmt.Errorf("failed to store gmail connection: %w", err)
	}
	return nil
}

// GmailConnectionStatus reports whether receipt scanning is connected,
// without exposing the stored token.
func (s *UserService) GmailConnectionStatus(ctx context.Context, userID string) (connected bool, email string, err error) {
	conn, err := s.users.GetGmailConnection(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, conn.Email, nil
}

// DisconnectGmail removes the stored OAuth grant
func (s *UserService) DisconnectGmail(ctx context.Context, userID string) error {
	if err := s.users.DeleteGmailConnection(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("gmail connection", userID)
		}
		return err
	}
	return nil
}
