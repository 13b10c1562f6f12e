package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yafs_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	selfReferralConstraint = "referrals_no_self"
)

type referral struct {
	ID             uuid.UUID `db:"id"`
	ReferrerID     string    `db:"referrer_id"`
	ReferredUserID string    `db:"referred_user_id"`
	BonusAmount    int64     `db:"bonus_amount"`
	CreatedAt      time.Time `db:"created_at"`
}

// CreateReferral records the edge and credits the referrer in one transaction
// and returns the referrer's new balance. A referrer without a users row gets
// one.
func (r *Repository) CreateReferral(ctx context.Context, ref *model.Referral) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		insertQuery, insertArgs, err := referralInsertQuery(ref)
		if err != nil {
			return fmt.Errorf("failed to build referral insert query: %w", err)
		}

		result, err := tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert referral: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrAlreadyReferred
		}

		creditQuery, creditArgs, err := referrerCreditQuery(ref)
		if err != nil {
			return fmt.Errorf("failed to build referrer credit query: %w", err)
		}

		if err := tx.GetContext(ctx, &total, creditQuery, creditArgs...); err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, translateReferralError(err)
	}

	return total, nil
}

func (r *Repository) ListReferrals(ctx context.Context, referrerID string) ([]*model.Referral, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := squirrel.
		Select("id", "referrer_id", "referred_user_id", "bonus_amount", "created_at").
		From("referrals").
		Where(squirrel.Eq{"referrer_id": referrerID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []*referral
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}

	refs := make([]*model.Referral, len(rows))
	for i, row := range rows {
		refs[i] = &model.Referral{
			ID:             row.ID,
			ReferrerID:     row.ReferrerID,
			ReferredUserID: row.ReferredUserID,
			BonusAmount:    row.BonusAmount,
			CreatedAt:      row.CreatedAt,
		}
	}

	return refs, nil
}

func translateReferralError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrAlreadyReferred
		case pgCheckViolation:
			if pgErr.ConstraintName == selfReferralConstraint {
				return ErrSelfReferral
			}
		}
	}
	return err
}
