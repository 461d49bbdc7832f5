package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo     NotificationRepository
	settings SettingsRepository
	hub      *NotificationHub
	now      func() time.Time
}

func NewNotificationService(repo NotificationRepository, settings SettingsRepository, hub *NotificationHub) *NotificationService {
	return &NotificationService{
		repo:     repo,
		settings: settings,
		hub:      hub,
		now:      time.Now,
	}
}

// Record stores a notification unless the user switched notifications off.
func (s *NotificationService) Record(ctx context.Context, userID, title, message string) error {
	st, err := s.settings.GetSettings(ctx, userID)
	switch {
	case err == nil:
		if !st.Notifications {
			return nil
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("failed to get settings: %w", err)
	}

	_, err = s.Create(ctx, userID, title, message)
	return err
}

func (s *NotificationService) Create(ctx context.Context, userID, title, message string) (*model.Notification, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return nil, ErrInvalidNotification
	}

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		IsRead:    false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(userID, Message{Type: EventNotificationCreated, Payload: n})
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	list, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	err := s.repo.DeleteNotification(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) Subscribe(userID string) *NotificationWS {
	return s.hub.Subscribe(userID)
}

func (s *NotificationService) Unsubscribe(ws *NotificationWS) {
	s.hub.Unsubscribe(ws)
}
