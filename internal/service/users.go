package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yafs_miniapp/internal/model"
	"yafs_miniapp/internal/repository"
	"yafs_miniapp/pkg/auth"
)

// UserStatus is a user's balance plus when each reward opens again. A user
// without a record gets zeroed defaults and Exists false.
type UserStatus struct {
	ID           string
	Exists       bool
	TotalCoins   int64
	LastClaim    *time.Time
	NextClaimAt  *time.Time
	LastMining   *time.Time
	NextMiningAt *time.Time
	CreatedAt    *time.Time
}

type UserService struct {
	repo      UserRepository
	cooldowns map[model.ClaimField]time.Duration
}

func NewUserService(repo UserRepository, policies ...Policy) *UserService {
	cooldowns := make(map[model.ClaimField]time.Duration, len(policies))
	for _, p := range policies {
		cooldowns[p.Field] = p.Cooldown
	}
	return &UserService{
		repo:      repo,
		cooldowns: cooldowns,
	}
}

func (s *UserService) Status(ctx context.Context, identity auth.Identity) (*UserStatus, error) {
	if identity.IsZero() {
		return nil, ErrAnonymousClaimant
	}

	status := &UserStatus{ID: identity.ID()}

	user, err := s.repo.GetUser(ctx, identity.ID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	createdAt := user.CreatedAt
	status.Exists = true
	status.TotalCoins = user.TotalCoins
	status.CreatedAt = &createdAt
	status.LastClaim = user.LastClaim
	status.NextClaimAt = s.next(user, model.FieldLastClaim)
	status.LastMining = user.LastMining
	status.NextMiningAt = s.next(user, model.FieldLastMining)

	return status, nil
}

func (s *UserService) next(user *model.User, field model.ClaimField) *time.Time {
	last := user.ClaimedAt(field)
	if last == nil {
		return nil
	}
	next := last.Add(s.cooldowns[field])
	return &next
}
