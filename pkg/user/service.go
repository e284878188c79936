package user

import (
	"context"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

// Service exposes user lookups and registration.
type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Profile returns the user without phone or password hash.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	return s.repo.Profile(ctx, id)
}

// Phone returns only the phone number. It is the single lookup that
// discloses it.
func (s *Service) Phone(ctx context.Context, id string) (string, error) {
	phone, err := s.repo.Phone(ctx, id)
	if err == nil {
		s.logger.WithContext(ctx).Info("phone number disclosed", "user_id", id)
	}
	return phone, err
}

// Register validates and stores u, returning the new id.
func (s *Service) Register(ctx context.Context, u User) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	return s.repo.Insert(ctx, &u)
}
