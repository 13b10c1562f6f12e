package service

import (
	"context"
	"errors"
	"time"

	"yafs_miniapp/internal/model"
	"yafs_miniapp/pkg/auth"
)

var (
	ErrSelfReferral      = errors.New("cannot refer yourself")
	ErrAlreadyReferred   = errors.New("already referred this user")
	ErrMissingReferral   = errors.New("referrer and referred user are required")
	ErrClaimContention   = errors.New("claim kept losing to concurrent updates")
	ErrUnknownReward     = errors.New("unknown reward kind")
	ErrAnonymousClaimant = errors.New("claim requires an identity")
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

type Service struct {
	*RewardService
	*ReferralService
	*UserService
}

func NewService(rewardService *RewardService, referralService *ReferralService, userService *UserService) *Service {
	return &Service{
		RewardService:   rewardService,
		ReferralService: referralService,
		UserService:     userService,
	}
}

type RewardServiceI interface {
	Claim(ctx context.Context, kind model.RewardKind, identity auth.Identity) (*ClaimResult, error)
}

type ReferralServiceI interface {
	Refer(ctx context.Context, referrerID, referredUserID string) (*ReferralResult, error)
	List(ctx context.Context, referrer auth.Identity) ([]*model.Referral, error)
}

type UserServiceI interface {
	Status(ctx context.Context, identity auth.Identity) (*UserStatus, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ApplyClaim(ctx context.Context, upd model.ClaimUpdate) (*model.User, error)
}

type ReferralRepository interface {
	CreateReferral(ctx context.Context, ref *model.Referral) (int64, error)
	ListReferrals(ctx context.Context, referrerID string) ([]*model.Referral, error)
}

// Notifier is told about credited referral bonuses. Implementations must not
// block the request.
type Notifier interface {
	ReferralCredited(ctx context.Context, referrerID string, bonus, total int64)
}
