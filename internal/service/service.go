package service

import (
	"context"
	"errors"
	"time"

	"sydai_backend/internal/model"

	"go.opentelemetry.io/otel"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyCheckedIn     = errors.New("already checked in today")
	ErrInvalidOrUsedCode    = errors.New("invalid or already used referral code")
	ErrConflict             = errors.New("conflict")
	ErrInvalidPage          = errors.New("page must be >= 0 and page size must be > 0")
	ErrCodeGeneration       = errors.New("could not generate a unique referral code")
	ErrNegativeBalance      = errors.New("points balance cannot go negative")
	ErrEmailTaken           = errors.New("email already in use")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrInvalidRegistration  = errors.New("invalid registration details")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidNotification  = errors.New("notification title and message are required")
	ErrEmptyMessage         = errors.New("message content is empty or too long")
	ErrInvalidSettings      = errors.New("invalid settings")
)

var tracer = otel.Tracer("sydai_backend/internal/service")

type Service struct {
	*UserService
	*CheckinService
	*ReferralService
	*LeaderboardService
	*NotificationService
	*ChatService
	*SettingsService
}

func NewService(
	userService *UserService,
	checkinService *CheckinService,
	referralService *ReferralService,
	leaderboardService *LeaderboardService,
	notificationService *NotificationService,
	chatService *ChatService,
	settingsService *SettingsService,
) *Service {
	return &Service{
		UserService:         userService,
		CheckinService:      checkinService,
		ReferralService:     referralService,
		LeaderboardService:  leaderboardService,
		NotificationService: notificationService,
		ChatService:         chatService,
		SettingsService:     settingsService,
	}
}

// Notifier records a user-facing event. Callers treat it as fire-and-forget.
type Notifier interface {
	Record(ctx context.Context, userID, title, message string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type LedgerRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	AwardPoints(ctx context.Context, userID string, delta int) (*model.User, error)
	RecordCheckin(ctx context.Context, userID string, at, notBefore time.Time, reward int) (*model.User, error)
}

type ReferralRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetReferralByReferrer(ctx context.Context, referrerID string) (*model.Referral, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	CreateReferral(ctx context.Context, ref *model.Referral) error
	CompleteReferral(ctx context.Context, code, referredUserID string, at time.Time, reward int) (*model.Referral, error)
	CountCompletedReferrals(ctx context.Context, referrerID string) (int, error)
}

type LeaderboardRepository interface {
	GetLeaderboardPage(ctx context.Context, offset, limit int) ([]*model.User, int, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error
}

type MessageRepository interface {
	CreateMessages(ctx context.Context, messages ...*model.Message) error
	ListMessages(ctx context.Context, userID string) ([]*model.Message, error)
}

type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (*model.Settings, error)
	CreateSettings(ctx context.Context, s *model.Settings) error
	UpdateSettings(ctx context.Context, userID string, update model.SettingsUpdate) (*model.Settings, error)
}

// Store is everything the services need from one storage backend.
type Store interface {
	UserRepository
	LedgerRepository
	ReferralRepository
	LeaderboardRepository
	NotificationRepository
	MessageRepository
	SettingsRepository
	Close() error
}
