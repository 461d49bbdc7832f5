package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
	"sydai_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 6
	MaxPasswordLength = 72

	welcomeTitle   = "Welcome to SydAI!"
	welcomeMessage = "Start chatting and complete your daily check-in to earn points and climb the leaderboard."
)

type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
	ReferralCode    string
}

type UserService struct {
	repo      UserRepository
	settings  SettingsRepository
	notifier  Notifier
	referrals *ReferralService
	hashCost  int
	now       func() time.Time
}

type UserOption func(*UserService)

func WithHashCost(cost int) UserOption {
	return func(s *UserService) {
		s.hashCost = cost
	}
}

func NewUserService(repo UserRepository, settings SettingsRepository, notifier Notifier, referrals *ReferralService, opts ...UserOption) *UserService {
	s := &UserService{
		repo:      repo,
		settings:  settings,
		notifier:  notifier,
		referrals: referrals,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateRegistration(in RegisterInput) error {
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: invalid email", ErrInvalidRegistration)
	}
	if n := utf8.RuneCountInString(in.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidRegistration, MinUsernameLength, MaxUsernameLength)
	}
	if len(in.Password) < MinPasswordLength || len(in.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidRegistration, MinPasswordLength, MaxPasswordLength)
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// Register creates an account. A referral code that cannot be redeemed does not fail
// the registration.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	log := logger.Logger()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if _, err := s.repo.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Points:       0,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.settings.CreateSettings(ctx, model.DefaultSettings(user.ID)); err != nil && !errors.Is(err, repository.ErrConflict) {
		log.Warn("failed to create default settings", zap.String("user_id", user.ID), zap.Error(err))
	}

	if code := strings.TrimSpace(in.ReferralCode); code != "" && s.referrals != nil {
		if _, err := s.referrals.CompleteReferral(ctx, code, user.ID); err != nil {
			log.Info("referral code not redeemed at registration",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	if err := s.notifier.Record(ctx, user.ID, welcomeTitle, welcomeMessage); err != nil {
		log.Warn("failed to record welcome notification", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}
