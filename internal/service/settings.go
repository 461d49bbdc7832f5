package service

import (
	"context"
	"errors"
	"fmt"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
)

type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{
		repo: repo,
	}
}

// Get returns the user's settings, creating the defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*model.Settings, error) {
	st, err := s.repo.GetSettings(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	st = model.DefaultSettings(userID)
	err = s.repo.CreateSettings(ctx, st)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	st, err = s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return st, nil
}

func (s *SettingsService) Update(ctx context.Context, userID string, update model.SettingsUpdate) (*model.Settings, error) {
	if update.Theme != nil && *update.Theme != model.ThemeLight && *update.Theme != model.ThemeDark {
		return nil, ErrInvalidSettings
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	st, err := s.repo.UpdateSettings(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return st, nil
}
