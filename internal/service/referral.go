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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReferralResult struct {
	Referral      *model.Referral
	Bonus         int64
	ReferrerTotal int64
	Message       string
}

type ReferralService struct {
	repo     ReferralRepository
	notifier Notifier
	bonus    int64
	now      Clock
}

// NewReferralService accepts a nil notifier.
func NewReferralService(repo ReferralRepository, bonus int64, notifier Notifier) *ReferralService {
	return &ReferralService{
		repo:     repo,
		notifier: notifier,
		bonus:    bonus,
		now:      time.Now,
	}
}

func (s *ReferralService) WithClock(now Clock) *ReferralService {
	s.now = now
	return s
}

func (s *ReferralService) Bonus() int64 {
	return s.bonus
}

func (s *ReferralService) Refer(ctx context.Context, referrerID, referredUserID string) (*ReferralResult, error) {
	log := logger.Logger()

	if referrerID == "" || referredUserID == "" {
		return nil, ErrMissingReferral
	}
	if referrerID == referredUserID {
		return nil, ErrSelfReferral
	}

	ref := &model.Referral{
		ID:             uuid.New(),
		ReferrerID:     referrerID,
		ReferredUserID: referredUserID,
		BonusAmount:    s.bonus,
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
	}

	total, err := s.repo.CreateReferral(ctx, ref)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyReferred):
			return nil, ErrAlreadyReferred
		case errors.Is(err, repository.ErrSelfReferral):
			return nil, ErrSelfReferral
		}
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	log.Info("referral recorded",
		zap.String("referral_id", ref.ID.String()),
		zap.String("referrer_id", referrerID),
		zap.String("referred_user_id", referredUserID),
		zap.Int64("referrer_total", total))

	if s.notifier != nil {
		s.notifier.ReferralCredited(ctx, referrerID, s.bonus, total)
	}

	return &ReferralResult{
		Referral:      ref,
		Bonus:         s.bonus,
		ReferrerTotal: total,
		Message:       fmt.Sprintf("Referral recorded successfully! +%d $YAFS awarded!", s.bonus),
	}, nil
}

func (s *ReferralService) List(ctx context.Context, referrer auth.Identity) ([]*model.Referral, error) {
	if referrer.IsZero() {
		return nil, ErrAnonymousClaimant
	}

	refs, err := s.repo.ListReferrals(ctx, referrer.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return refs, nil
}
