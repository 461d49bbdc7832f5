package service

import (
	"context"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	CheckinReward = 10

	checkinTitle   = "Daily Check-in Complete!"
	checkinMessage = "You've earned 10 points! Come back tomorrow for more."
)

type CheckinService struct {
	ledger   *LedgerService
	notifier Notifier
	now      func() time.Time
	loc      *time.Location
}

type CheckinOption func(*CheckinService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CheckinOption {
	return func(s *CheckinService) {
		s.now = now
	}
}

// WithLocation sets the time zone whose calendar days bound a check-in. UTC by default.
func WithLocation(loc *time.Location) CheckinOption {
	return func(s *CheckinService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewCheckinService(ledger *LedgerService, notifier Notifier, opts ...CheckinOption) *CheckinService {
	s := &CheckinService{
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SameCalendarDay reports whether a and b fall on the same date in loc.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns midnight of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (s *CheckinService) state(lastCheckin *time.Time, now time.Time) model.CheckinState {
	switch {
	case lastCheckin == nil:
		return model.NeverCheckedIn
	case SameCalendarDay(*lastCheckin, now, s.loc):
		return model.CheckedInToday
	default:
		return model.CheckedInPreviously
	}
}

func (s *CheckinService) Status(ctx context.Context, userID string) (*model.CheckinStatus, error) {
	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := &model.CheckinStatus{
		UserID:      userID,
		State:       s.state(user.LastCheckin, now),
		LastCheckin: user.LastCheckin,
		Reward:      CheckinReward,
	}
	if status.State == model.CheckedInToday {
		next := StartOfDay(now, s.loc).AddDate(0, 0, 1)
		status.NextAvailableAt = &next
	}

	return status, nil
}

// Attempt performs the daily check-in. At most one attempt per calendar day succeeds.
func (s *CheckinService) Attempt(ctx context.Context, userID string) (*model.CheckinResult, error) {
	ctx, span := tracer.Start(ctx, "CheckinService.Attempt", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	if s.state(user.LastCheckin, now) == model.CheckedInToday {
		span.SetAttributes(attribute.Bool("checkin.duplicate", true))
		return nil, ErrAlreadyCheckedIn
	}

	updated, err := s.ledger.RecordCheckin(ctx, userID, now, StartOfDay(now, s.loc), CheckinReward)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.notifier.Record(ctx, userID, checkinTitle, checkinMessage); err != nil {
		logger.Logger().Warn("failed to record check-in notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return &model.CheckinResult{
		Success:       true,
		PointsAwarded: CheckinReward,
		User:          updated,
	}, nil
}
