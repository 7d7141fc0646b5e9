package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/storage"
)

// contractEndHorizon is how far ahead a contract end counts as "ending soon"
const contractEndHorizon = 60 * 24 * time.Hour

// SubscriptionRepository is the storage surface SubscriptionService needs
type SubscriptionRepository interface {
	Create(ctx context.Context, svc *models.TrackedService) error
	GetByID(ctx context.Context, userID, id string) (*models.TrackedService, error)
	List(ctx context.Context, userID string) ([]*models.TrackedService, error)
	Update(ctx context.Context, svc *models.TrackedService) error
	Delete(ctx context.Context, userID, id string) error
	AddComparisonResult(ctx context.Context, result *models.ComparisonResult) error
	LatestComparison(ctx context.Context, userID, serviceID string) (*models.ComparisonResult, error)
}

// SubscriptionService handles tracked contracts and switch reviews
type SubscriptionService struct {
	subs SubscriptionRepository
	now  func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(subs SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subs: subs, now: time.Now}
}

// CreateServiceInput represents input for tracking a contract
type CreateServiceInput struct {
	UserID          string             `json:"userId"`
	Name            string             `json:"name"`
	Kind            models.ServiceKind `json:"kind"`
	MonthlyCost     decimal.Decimal    `json:"monthlyCost"`
	ContractEndDate *time.Time         `json:"contractEndDate,omitempty"`
}

func (in *CreateServiceInput) validate() error {
	if in.UserID == "" {
		return apperrors.NewInvalidParameterError("userId", "must not be empty")
	}
	if in.Name == "" {
		return apperrors.NewInvalidParameterError("name", "must not be empty")
	}
	switch in.Kind {
	case models.ServiceEnergy, models.ServiceBroadband, models.ServiceMobile, models.ServiceInsurance, models.ServiceStreaming:
	default:
		return apperrors.NewInvalidParameterError("kind", fmt.Sprintf("unknown service kind %q", in.Kind))
	}
	if in.MonthlyCost.IsNegative() {
		return apperrors.NewInvalidParameterError("monthlyCost", "must not be negative")
	}
	return nil
}

// CreateService starts tracking a contract
func (s *SubscriptionService) CreateService(ctx context.Context, input *CreateServiceInput) (*models.TrackedService, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	svc := &models.TrackedService{
		UserID:          input.UserID,
		Name:            input.Name,
		Kind:            input.Kind,
		MonthlyCost:     input.MonthlyCost,
		ContractEndDate: input.ContractEndDate,
	}
	if err := s.subs.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create tracked service: %w", err)
	}
	return svc, nil
}

// GetService returns one tracked service
func (s *SubscriptionService) GetService(ctx context.Context, userID, id string) (*models.TrackedService, error) {
	svc, err := s.subs.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("service", id)
		}
		return nil, err
	}
	return svc, nil
}

// ListServices returns all tracked services
func (s *SubscriptionService) ListServices(ctx context.Context, userID string) ([]*models.TrackedService, error) {
	return s.subs.List(ctx, userID)
}

// UpdateServiceInput carries the mutable fields
type UpdateServiceInput struct {
	Name            string             `json:"name"`
	Kind            models.ServiceKind `json:"kind"`
	MonthlyCost     decimal.Decimal    `json:"monthlyCost"`
	ContractEndDate *time.Time         `json:"contractEndDate,omitempty"`
}

// UpdateService replaces the mutable fields of a tracked service
func (s *SubscriptionService) UpdateService(ctx context.Context, userID, id string, input *UpdateServiceInput) (*models.TrackedService, error) {
	create := &CreateServiceInput{
		UserID:      userID,
		Name:        input.Name,
		Kind:        input.Kind,
		MonthlyCost: input.MonthlyCost,
	}
	if err := create.validate(); err != nil {
		return nil, err
	}

	svc, err := s.GetService(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	svc.Name = input.Name
	svc.Kind = input.Kind
	svc.MonthlyCost = input.MonthlyCost
	svc.ContractEndDate = input.ContractEndDate

	if err := s.subs.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to update tracked service: %w", err)
	}
	return svc, nil
}

// DeleteService stops tracking a contract
func (s *SubscriptionService) DeleteService(ctx context.Context, userID, id string) error {
	if err := s.subs.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError("service", id)
		}
		return err
	}
	return nil
}

// RecordComparisonInput represents the best alternative found on a check
type RecordComparisonInput struct {
	UserID          string          `json:"userId"`
	ServiceID       string          `json:"serviceId"`
	BestAlternative string          `json:"bestAlternative"`
	BestMonthlyCost decimal.Decimal `json:"bestMonthlyCost"`
}

// RecordComparison stores a comparison result against a tracked service.
// The saving is derived from the service's current monthly cost.
func (s *SubscriptionService) RecordComparison(ctx context.Context, input *RecordComparisonInput) (*models.ComparisonResult, error) {
	if input.BestAlternative == "" {
		return nil, apperrors.NewInvalidParameterError("bestAlternative", "must not be empty")
	}
	if input.BestMonthlyCost.IsNegative() {
		return nil, apperrors.NewInvalidParameterError("bestMonthlyCost", "must not be negative")
	}

	svc, err := s.GetService(ctx, input.UserID, input.ServiceID)
	if err != nil {
		return nil, err
	}

	result := &models.ComparisonResult{
		ServiceID:       svc.ID,
		UserID:          input.UserID,
		CheckedAt:       s.now(),
		BestAlternative: input.BestAlternative,
		BestMonthlyCost: input.BestMonthlyCost,
		SavingPerMonth:  svc.MonthlyCost.Sub(input.BestMonthlyCost),
	}
	if err := s.subs.AddComparisonResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record comparison: %w", err)
	}
	return result, nil
}

// ReviewItem flags a service worth attention
type ReviewItem struct {
	Service          *models.TrackedService   `json:"service"`
	ContractEndsSoon bool                     `json:"contractEndsSoon"`
	LatestComparison *models.ComparisonResult `json:"latestComparison,omitempty"`
}

// Review lists services whose contract ends within 60 days or where the
// latest comparison found a cheaper alternative.
func (s *SubscriptionService) Review(ctx context.Context, userID string) ([]ReviewItem, error) {
	services, err := s.subs.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var items []ReviewItem
	for _, svc := range services {
		endsSoon := svc.ContractEndDate != nil &&
			!svc.ContractEndDate.Before(now) &&
			svc.ContractEndDate.Sub(now) <= contractEndHorizon

		latest, err := s.subs.LatestComparison(ctx, userID, svc.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		saves := latest != nil && latest.SavingPerMonth.IsPositive()

		if endsSoon || saves {
			items = append(items, ReviewItem{
				Service:          svc,
				ContractEndsSoon: endsSoon,
				LatestComparison: latest,
			})
		}
	}
	return items, nil
}
