package service

import (
	"context"

	"garagepro/internal/model"
	"garagepro/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService answers entitlement questions from local state only.
type SubscriptionService interface {
	// CheckSubscription returns the most recently updated subscription whose
	// status grants access, or nil when the user has none.
	CheckSubscription(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:   repo,
		logger: logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) CheckSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	sub, err := s.repo.GetEntitledSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch active subscription")
		return nil, persistenceError(err)
	}
	return sub, nil
}
