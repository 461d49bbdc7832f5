package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sydai_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID            string         `db:"id"`
	Username      string         `db:"username"`
	Email         string         `db:"email"`
	PasswordHash  string         `db:"password_hash"`
	Points        int            `db:"points"`
	LastCheckinAt sql.NullInt64  `db:"last_checkin_at"`
	AvatarURL     sql.NullString `db:"avatar_url"`
	CreatedAt     int64          `db:"created_at"`
}

var userColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"points",
	"last_checkin_at",
	"avatar_url",
	"created_at",
}

var returningUser = "RETURNING " + strings.Join(userColumns, ", ")

func (u *User) toModel() *model.User {
	user := &model.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Points:       u.Points,
		CreatedAt:    fromMillis(u.CreatedAt),
	}
	if u.LastCheckinAt.Valid {
		t := fromMillis(u.LastCheckinAt.Int64)
		user.LastCheckin = &t
	}
	if u.AvatarURL.Valid {
		avatar := u.AvatarURL.String
		user.AvatarURL = &avatar
	}
	return user
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	var lastCheckin *int64
	if user.LastCheckin != nil {
		ms := toMillis(*user.LastCheckin)
		lastCheckin = &ms
	}

	query, args, err := r.sb.
		Insert("users").
		SetMap(map[string]interface{}{
			"id":              user.ID,
			"username":        user.Username,
			"email":           user.Email,
			"password_hash":   user.PasswordHash,
			"points":          user.Points,
			"last_checkin_at": lastCheckin,
			"avatar_url":      user.AvatarURL,
			"created_at":      toMillis(user.CreatedAt),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUserBy(ctx, r.db, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserBy(ctx, r.db, squirrel.Eq{"email": email})
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserBy(ctx, r.db, squirrel.Eq{"username": username})
}

func (r *Repository) getUserBy(ctx context.Context, q sqlx.QueryerContext, where squirrel.Eq) (*model.User, error) {
	query, args, err := r.sb.
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = sqlx.GetContext(ctx, q, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// AwardPoints adds delta to the user's total. A delta that would take the total below
// zero is rejected with ErrNegativeBalance.
func (r *Repository) AwardPoints(ctx context.Context, userID string, delta int) (*model.User, error) {
	var updated *model.User
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		updated, err = r.awardPointsWithTx(ctx, tx, userID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) awardPointsWithTx(ctx context.Context, tx *sqlx.Tx, userID string, delta int) (*model.User, error) {
	query, args, err := r.sb.
		Update("users").
		Set("points", squirrel.Expr("points + ?", delta)).
		Where(squirrel.Eq{"id": userID}).
		Where(squirrel.Expr("points + ? >= 0", delta)).
		Suffix(returningUser).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = tx.GetContext(ctx, &user, query, args...)
	if err == nil {
		return user.toModel(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update points: %w", err)
	}

	if _, err := r.getUserBy(ctx, tx, squirrel.Eq{"id": userID}); err != nil {
		return nil, err
	}
	return nil, ErrNegativeBalance
}

// RecordCheckin stamps the check-in time and adds the reward in one statement. The update
// only applies when the previous check-in is older than notBefore.
func (r *Repository) RecordCheckin(ctx context.Context, userID string, at, notBefore time.Time, reward int) (*model.User, error) {
	var updated *model.User
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.sb.
			Update("users").
			Set("points", squirrel.Expr("points + ?", reward)).
			Set("last_checkin_at", toMillis(at)).
			Where(squirrel.Eq{"id": userID}).
			Where(squirrel.Or{
				squirrel.Eq{"last_checkin_at": nil},
				squirrel.Lt{"last_checkin_at": toMillis(notBefore)},
			}).
			Suffix(returningUser).
			ToSql()
		if err != nil {
			return err
		}

		var user User
		err = tx.GetContext(ctx, &user, query, args...)
		if err == nil {
			updated = user.toModel()
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to record check-in: %w", err)
		}

		if _, err := r.getUserBy(ctx, tx, squirrel.Eq{"id": userID}); err != nil {
			return err
		}
		return ErrAlreadyCheckedIn
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetLeaderboardPage returns users ordered by points (ties by id) together with the total
// user count, both read inside one transaction.
func (r *Repository) GetLeaderboardPage(ctx context.Context, offset, limit int) ([]*model.User, int, error) {
	var (
		users []User
		total int
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.sb.
			Select("id", "username", "points", "avatar_url").
			From("users").
			OrderBy("points DESC", "id ASC").
			Limit(uint64(limit)).
			Offset(uint64(offset)).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.SelectContext(ctx, &users, query, args...)
		if err != nil {
			return err
		}

		countQuery, countArgs, err := r.sb.
			Select("COUNT(*)").
			From("users").
			ToSql()
		if err != nil {
			return err
		}

		return tx.GetContext(ctx, &total, countQuery, countArgs...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get leaderboard page: %w", err)
	}

	userList := make([]*model.User, len(users))
	for i := range users {
		userList[i] = users[i].toModel()
	}

	return userList, total, nil
}
