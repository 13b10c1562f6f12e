package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"yafs_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
)

var userColumns = []string{"id", "total_coins", "last_claim", "last_mining", "created_at"}

var returningUser = "RETURNING " + strings.Join(userColumns, ", ")

type User struct {
	ID         string     `db:"id"`
	TotalCoins int64      `db:"total_coins"`
	LastClaim  *time.Time `db:"last_claim"`
	LastMining *time.Time `db:"last_mining"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:         u.ID,
		TotalCoins: u.TotalCoins,
		LastClaim:  u.LastClaim,
		LastMining: u.LastMining,
		CreatedAt:  u.CreatedAt,
	}
}

func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user.toModel(), nil
}

// ApplyClaim credits the reward and moves the gating timestamp in one
// statement. It returns ErrConflict when the row no longer matches what the
// caller decided on.
func (r *Repository) ApplyClaim(ctx context.Context, upd model.ClaimUpdate) (*model.User, error) {
	query, args, err := claimQuery(upd)
	if err != nil {
		return nil, fmt.Errorf("failed to build claim query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to apply %s claim: %w", upd.Field, err)
	}

	return user.toModel(), nil
}
