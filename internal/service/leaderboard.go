package service

import (
	"context"
	"fmt"
	"math"

	"sydai_backend/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// LeaderboardFloor is the smallest total the leaderboard ever reports.
	LeaderboardFloor = 1000
)

type LeaderboardService struct {
	repo LeaderboardRepository
}

func NewLeaderboardService(repo LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{
		repo: repo,
	}
}

// GetPage ranks users by points (ties by user id) and returns the zero-based page.
// Page sizes above MaxPageSize are clamped.
func (s *LeaderboardService) GetPage(ctx context.Context, page, pageSize int) (*model.LeaderboardPage, error) {
	ctx, span := tracer.Start(ctx, "LeaderboardService.GetPage", trace.WithAttributes(
		attribute.Int("leaderboard.page", page),
		attribute.Int("leaderboard.page_size", pageSize),
	))
	defer span.End()

	if page < 0 || pageSize <= 0 {
		return nil, ErrInvalidPage
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page > math.MaxInt32/pageSize {
		return nil, ErrInvalidPage
	}

	offset := page * pageSize
	users, total, err := s.repo.GetLeaderboardPage(ctx, offset, pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = model.LeaderboardEntry{
			UserID:    u.ID,
			Username:  u.Username,
			Points:    u.Points,
			Rank:      offset + i + 1,
			AvatarURL: u.AvatarURL,
		}
	}

	if total < LeaderboardFloor {
		total = LeaderboardFloor
	}

	return &model.LeaderboardPage{
		Entries:    entries,
		TotalUsers: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    len(entries) == pageSize,
	}, nil
}
