package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
	"sydai_backend/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	ReferralReward = 20

	ReferralCodeLength   = 8
	ReferralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 5

	referralTitle   = "Referral completed"
	referralMessage = "Someone joined with your referral code! You've earned 20 points."
)

// GenerateReferralCode draws ReferralCodeLength characters from ReferralCodeAlphabet.
func GenerateReferralCode() (string, error) {
	size := big.NewInt(int64(len(ReferralCodeAlphabet)))
	code := make([]byte, ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		code[i] = ReferralCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

type ReferralService struct {
	repo     ReferralRepository
	notifier Notifier
	baseURL  string
	generate func() (string, error)
	now      func() time.Time
}

type ReferralOption func(*ReferralService)

func WithCodeGenerator(generate func() (string, error)) ReferralOption {
	return func(s *ReferralService) {
		s.generate = generate
	}
}

func WithReferralClock(now func() time.Time) ReferralOption {
	return func(s *ReferralService) {
		s.now = now
	}
}

func NewReferralService(repo ReferralRepository, notifier Notifier, baseURL string, opts ...ReferralOption) *ReferralService {
	s := &ReferralService{
		repo:     repo,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		generate: GenerateReferralCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateReferral returns the user's referral, creating it with a fresh code on first use.
func (s *ReferralService) GetOrCreateReferral(ctx context.Context, userID string) (*model.Referral, error) {
	ref, err := s.repo.GetReferralByReferrer(ctx, userID)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}

	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}

		exists, err := s.repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check referral code: %w", err)
		}
		if exists {
			continue
		}

		ref := &model.Referral{
			ID:         uuid.NewString(),
			ReferrerID: userID,
			Code:       code,
			CreatedAt:  s.now().UTC(),
		}
		err = s.repo.CreateReferral(ctx, ref)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("failed to create referral: %w", err)
		}

		// Either the code was taken in the meantime or a concurrent request
		// created this user's referral first.
		existing, getErr := s.repo.GetReferralByReferrer(ctx, userID)
		if getErr == nil {
			return existing, nil
		}
		if !errors.Is(getErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get referral: %w", getErr)
		}
	}

	logger.Logger().Error("referral code generation exhausted", zap.String("user_id", userID))
	return nil, ErrCodeGeneration
}

func (s *ReferralService) GetStats(ctx context.Context, userID string) (*model.ReferralStats, error) {
	ref, err := s.GetOrCreateReferral(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.CountCompletedReferrals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	return &model.ReferralStats{
		Code:           ref.Code,
		ShareableLink:  s.ShareableLink(ref.Code),
		TotalReferrals: completed,
		TotalPoints:    completed * ReferralReward,
	}, nil
}

func (s *ReferralService) ShareableLink(code string) string {
	return s.baseURL + "/signup?ref=" + code
}

// CompleteReferral links newUserID to the owner of code and credits the owner. A code
// completes at most once and never for its own referrer.
func (s *ReferralService) CompleteReferral(ctx context.Context, code, newUserID string) (*model.Referral, error) {
	ctx, span := tracer.Start(ctx, "ReferralService.CompleteReferral", trace.WithAttributes(attribute.String("user.id", newUserID)))
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidOrUsedCode
	}

	ref, err := s.repo.CompleteReferral(ctx, code, newUserID, s.now().UTC(), ReferralReward)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrReferralUnavailable):
			return nil, ErrInvalidOrUsedCode
		}
		return nil, fmt.Errorf("failed to complete referral: %w", err)
	}

	if err := s.notifier.Record(ctx, ref.ReferrerID, referralTitle, referralMessage); err != nil {
		logger.Logger().Warn("failed to record referral notification",
			zap.String("user_id", ref.ReferrerID),
			zap.Error(err),
		)
	}

	return ref, nil
}
