package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sydai_backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Settings struct {
	UserID             string `db:"user_id"`
	Theme              string `db:"theme"`
	Notifications      bool   `db:"notifications"`
	EmailNotifications bool   `db:"email_notifications"`
}

func (s *Settings) toModel() *model.Settings {
	return &model.Settings{
		UserID:             s.UserID,
		Theme:              s.Theme,
		Notifications:      s.Notifications,
		EmailNotifications: s.EmailNotifications,
	}
}

func (r *Repository) GetSettings(ctx context.Context, userID string) (*model.Settings, error) {
	query, args, err := r.sb.
		Select("user_id", "theme", "notifications", "email_notifications").
		From("settings").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s Settings
	err = r.db.GetContext(ctx, &s, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.toModel(), nil
}

func (r *Repository) CreateSettings(ctx context.Context, s *model.Settings) error {
	query, args, err := r.sb.
		Insert("settings").
		SetMap(map[string]interface{}{
			"user_id":             s.UserID,
			"theme":               s.Theme,
			"notifications":       s.Notifications,
			"email_notifications": s.EmailNotifications,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build settings insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert settings: %w", err)
	}
	return nil
}

func (r *Repository) UpdateSettings(ctx context.Context, userID string, update model.SettingsUpdate) (*model.Settings, error) {
	values := map[string]interface{}{}
	if update.Theme != nil {
		values["theme"] = *update.Theme
	}
	if update.Notifications != nil {
		values["notifications"] = *update.Notifications
	}
	if update.EmailNotifications != nil {
		values["email_notifications"] = *update.EmailNotifications
	}
	if len(values) == 0 {
		return r.GetSettings(ctx, userID)
	}

	query, args, err := r.sb.
		Update("settings").
		SetMap(values).
		Where(squirrel.Eq{"user_id": userID}).
		Suffix("RETURNING user_id, theme, notifications, email_notifications").
		ToSql()
	if err != nil {
		return nil, err
	}

	var s Settings
	err = r.db.GetContext(ctx, &s, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return s.toModel(), nil
}
