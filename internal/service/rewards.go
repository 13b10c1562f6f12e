package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yafs_miniapp/internal/model"
	"yafs_miniapp/internal/repository"
	"yafs_miniapp/pkg/auth"
	"yafs_miniapp/pkg/logger"

	"go.uber.org/zap"
)

const maxClaimAttempts = 3

type ClaimResult struct {
	Kind         model.RewardKind
	Allowed      bool
	FirstClaim   bool
	Reward       int64
	TotalCoins   int64
	Message      string
	NextEligible time.Time
	Remaining    time.Duration
}

type RewardService struct {
	repo     UserRepository
	policies map[model.RewardKind]Policy
	now      Clock
}

func NewRewardService(repo UserRepository, policies ...Policy) *RewardService {
	s := &RewardService{
		repo:     repo,
		policies: make(map[model.RewardKind]Policy, len(policies)),
		now:      time.Now,
	}
	for _, p := range policies {
		s.policies[p.Kind] = p
	}
	return s
}

func (s *RewardService) WithClock(now Clock) *RewardService {
	s.now = now
	return s
}

func (s *RewardService) Policy(kind model.RewardKind) (Policy, bool) {
	p, ok := s.policies[kind]
	return p, ok
}

// Claim reads the record, decides and writes conditionally. A write that
// loses against a concurrent claim is retried from a fresh read so that at
// most one of them is paid.
func (s *RewardService) Claim(ctx context.Context, kind model.RewardKind, identity auth.Identity) (*ClaimResult, error) {
	log := logger.Logger()

	policy, ok := s.policies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReward, kind)
	}
	if identity.IsZero() {
		return nil, ErrAnonymousClaimant
	}

	userID := identity.ID()
	now := s.now().UTC().Truncate(time.Microsecond)

	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		user, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to get user: %w", err)
			}
			user = nil
		}

		decision := policy.Decide(userID, user, now)
		if !decision.Allowed {
			return &ClaimResult{
				Kind:         kind,
				TotalCoins:   decision.Record.TotalCoins,
				Message:      policy.message(decision),
				NextEligible: decision.NextEligible,
				Remaining:    decision.Remaining,
			}, nil
		}

		updated, err := s.repo.ApplyClaim(ctx, decision.Update)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				log.Debug("claim lost a concurrent update, retrying",
					zap.String("identity", identity.String()),
					zap.String("kind", string(kind)),
					zap.Int("attempt", attempt))
				continue
			}
			return nil, fmt.Errorf("failed to apply claim: %w", err)
		}

		log.Info("reward claimed",
			zap.String("identity", identity.String()),
			zap.String("kind", string(kind)),
			zap.Int64("reward", decision.Reward),
			zap.Int64("total_coins", updated.TotalCoins))

		return &ClaimResult{
			Kind:         kind,
			Allowed:      true,
			FirstClaim:   decision.FirstClaim,
			Reward:       decision.Reward,
			TotalCoins:   updated.TotalCoins,
			Message:      policy.message(decision),
			NextEligible: decision.NextEligible,
		}, nil
	}

	return nil, ErrClaimContention
}
