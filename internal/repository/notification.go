package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sydai_backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Notification struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	IsRead    bool   `db:"is_read"`
	CreatedAt int64  `db:"created_at"`
}

var notificationColumns = []string{"id", "user_id", "title", "message", "is_read", "created_at"}

func (n *Notification) toModel() *model.Notification {
	return &model.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: fromMillis(n.CreatedAt),
	}
}

func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	query, args, err := r.sb.
		Insert("notifications").
		SetMap(map[string]interface{}{
			"id":         n.ID,
			"user_id":    n.UserID,
			"title":      n.Title,
			"message":    n.Message,
			"is_read":    n.IsRead,
			"created_at": toMillis(n.CreatedAt),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build notification insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error) {
	query, args, err := r.sb.
		Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Notification
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*model.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	query, args, err := r.sb.
		Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + strings.Join(notificationColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var n Notification
	err = r.db.GetContext(ctx, &n, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n.toModel(), nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	query, args, err := r.sb.
		Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id string) error {
	query, args, err := r.sb.
		Delete("notifications").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
