package repository

import (
	"context"
	"fmt"

	"sydai_backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Message struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Content    string `db:"content"`
	IsFromUser bool   `db:"is_from_user"`
	CreatedAt  int64  `db:"created_at"`
}

// CreateMessages stores a batch of chat messages in a single insert.
func (r *Repository) CreateMessages(ctx context.Context, messages ...*model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	builder := r.sb.
		Insert("messages").
		Columns("id", "user_id", "content", "is_from_user", "created_at")

	for _, m := range messages {
		builder = builder.Values(m.ID, m.UserID, m.Content, m.IsFromUser, toMillis(m.CreatedAt))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build messages insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert messages: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, userID string) ([]*model.Message, error) {
	query, args, err := r.sb.
		Select("id", "user_id", "content", "is_from_user", "created_at").
		From("messages").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC", "is_from_user DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Message
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]*model.Message, len(rows))
	for i, m := range rows {
		out[i] = &model.Message{
			ID:         m.ID,
			UserID:     m.UserID,
			Content:    m.Content,
			IsFromUser: m.IsFromUser,
			CreatedAt:  fromMillis(m.CreatedAt),
		}
	}
	return out, nil
}
