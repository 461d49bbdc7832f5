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

type Referral struct {
	ID             string         `db:"id"`
	ReferrerID     string         `db:"referrer_id"`
	ReferredUserID sql.NullString `db:"referred_user_id"`
	Code           string         `db:"code"`
	IsCompleted    bool           `db:"is_completed"`
	CreatedAt      int64          `db:"created_at"`
	CompletedAt    sql.NullInt64  `db:"completed_at"`
}

var referralColumns = []string{
	"id",
	"referrer_id",
	"referred_user_id",
	"code",
	"is_completed",
	"created_at",
	"completed_at",
}

func (r *Referral) toModel() *model.Referral {
	ref := &model.Referral{
		ID:          r.ID,
		ReferrerID:  r.ReferrerID,
		Code:        r.Code,
		IsCompleted: r.IsCompleted,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
	if r.ReferredUserID.Valid {
		referred := r.ReferredUserID.String
		ref.ReferredUserID = &referred
	}
	if r.CompletedAt.Valid {
		t := fromMillis(r.CompletedAt.Int64)
		ref.CompletedAt = &t
	}
	return ref
}

func (r *Repository) GetReferralByReferrer(ctx context.Context, referrerID string) (*model.Referral, error) {
	query, args, err := r.sb.
		Select(referralColumns...).
		From("referrals").
		Where(squirrel.Eq{"referrer_id": referrerID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ref Referral
	err = r.db.GetContext(ctx, &ref, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return ref.toModel(), nil
}

func (r *Repository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From("referrals").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return count > 0, nil
}

// CreateReferral inserts a fresh, uncompleted referral. A duplicate code or a second
// referral for the same referrer yields ErrConflict.
func (r *Repository) CreateReferral(ctx context.Context, ref *model.Referral) error {
	query, args, err := r.sb.
		Insert("referrals").
		SetMap(map[string]interface{}{
			"id":           ref.ID,
			"referrer_id":  ref.ReferrerID,
			"code":         ref.Code,
			"is_completed": false,
			"created_at":   toMillis(ref.CreatedAt),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referral insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert referral: %w", err)
	}

	return nil
}

// CompleteReferral consumes an open code on behalf of referredUserID and credits the
// referrer with reward points. Both writes share one transaction, so a failed award
// leaves the code unused.
func (r *Repository) CompleteReferral(ctx context.Context, code, referredUserID string, at time.Time, reward int) (*model.Referral, error) {
	var completed *model.Referral
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getUserBy(ctx, tx, squirrel.Eq{"id": referredUserID}); err != nil {
			return err
		}

		query, args, err := r.sb.
			Update("referrals").
			SetMap(map[string]interface{}{
				"is_completed":     true,
				"referred_user_id": referredUserID,
				"completed_at":     toMillis(at),
			}).
			Where(squirrel.Eq{
				"code":         code,
				"is_completed": false,
			}).
			Where(squirrel.NotEq{"referrer_id": referredUserID}).
			Suffix("RETURNING " + strings.Join(referralColumns, ", ")).
			ToSql()
		if err != nil {
			return err
		}

		var ref Referral
		err = tx.GetContext(ctx, &ref, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReferralUnavailable
			}
			return fmt.Errorf("failed to complete referral: %w", err)
		}

		if _, err := r.awardPointsWithTx(ctx, tx, ref.ReferrerID, reward); err != nil {
			return fmt.Errorf("failed to award referral points: %w", err)
		}

		completed = ref.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (r *Repository) CountCompletedReferrals(ctx context.Context, referrerID string) (int, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From("referrals").
		Where(squirrel.Eq{
			"referrer_id":  referrerID,
			"is_completed": true,
		}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
