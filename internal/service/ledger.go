package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
)

// LedgerService is the only path through which points and check-in stamps change.
type LedgerService struct {
	repo LedgerRepository
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{
		repo: repo,
	}
}

func (s *LedgerService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// AwardPoints adds delta to the user's balance and returns the updated user.
func (s *LedgerService) AwardPoints(ctx context.Context, userID string, delta int) (*model.User, error) {
	user, err := s.repo.AwardPoints(ctx, userID, delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrNegativeBalance):
			return nil, ErrNegativeBalance
		}
		return nil, fmt.Errorf("failed to award points: %w", err)
	}
	return user, nil
}

// RecordCheckin stamps the check-in and adds reward in one write, provided the last
// check-in happened before notBefore.
func (s *LedgerService) RecordCheckin(ctx context.Context, userID string, at, notBefore time.Time, reward int) (*model.User, error) {
	user, err := s.repo.RecordCheckin(ctx, userID, at, notBefore, reward)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrAlreadyCheckedIn):
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	return user, nil
}
