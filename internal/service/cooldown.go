package service

import (
	"fmt"
	"math/rand"
	"time"

	"yafs_miniapp/internal/model"
)

const (
	DefaultBoxCooldown    = 24 * time.Hour
	DefaultBoxMinReward   = 10
	DefaultBoxMaxReward   = 100
	DefaultMiningCooldown = 2 * time.Hour
	DefaultMiningReward   = 5
	DefaultReferralBonus  = 50
)

type RewardFunc func() int64

func FixedReward(amount int64) RewardFunc {
	return func() int64 { return amount }
}

// RangeReward draws uniformly from [min, max].
func RangeReward(min, max int64) RewardFunc {
	if max < min {
		min, max = max, min
	}
	return func() int64 {
		return min + rand.Int63n(max-min+1)
	}
}

// Policy gates one reward kind behind a cooldown on a single users column.
type Policy struct {
	Kind           model.RewardKind
	Field          model.ClaimField
	Cooldown       time.Duration
	Reward         RewardFunc
	WelcomeMessage string
	SuccessMessage string
}

func BoxPolicy(cooldown time.Duration, min, max int64) Policy {
	return Policy{
		Kind:           model.RewardBox,
		Field:          model.FieldLastClaim,
		Cooldown:       cooldown,
		Reward:         RangeReward(min, max),
		WelcomeMessage: "Welcome! First reward claimed!",
		SuccessMessage: "Reward claimed successfully!",
	}
}

func MiningPolicy(cooldown time.Duration, amount int64) Policy {
	return Policy{
		Kind:           model.RewardMining,
		Field:          model.FieldLastMining,
		Cooldown:       cooldown,
		Reward:         FixedReward(amount),
		WelcomeMessage: "Welcome! First mining claimed!",
		SuccessMessage: "Mining claimed successfully!",
	}
}

type Decision struct {
	Allowed bool
	// FirstClaim is set when no record existed yet.
	FirstClaim   bool
	Reward       int64
	Update       model.ClaimUpdate
	Record       model.User
	NextEligible time.Time
	Remaining    time.Duration
}

// Decide is pure apart from drawing the reward. user is nil when no record
// exists.
func (p Policy) Decide(userID string, user *model.User, now time.Time) Decision {
	if user == nil {
		reward := p.Reward()
		record := model.User{ID: userID, TotalCoins: reward, CreatedAt: now}
		record.SetClaimedAt(p.Field, now)
		return Decision{
			Allowed:    true,
			FirstClaim: true,
			Reward:     reward,
			Update: model.ClaimUpdate{
				UserID:    userID,
				Field:     p.Field,
				Create:    true,
				ClaimedAt: now,
				Reward:    reward,
			},
			Record:       record,
			NextEligible: now.Add(p.Cooldown),
		}
	}

	last := user.ClaimedAt(p.Field)
	if last != nil {
		elapsed := now.Sub(*last)
		if elapsed < p.Cooldown {
			return Decision{
				Record:       *user,
				NextEligible: last.Add(p.Cooldown),
				Remaining:    p.Cooldown - elapsed,
			}
		}
	}

	var expected *time.Time
	if last != nil {
		t := *last
		expected = &t
	}

	reward := p.Reward()
	record := *user
	record.TotalCoins += reward
	record.SetClaimedAt(p.Field, now)

	return Decision{
		Allowed: true,
		Reward:  reward,
		Update: model.ClaimUpdate{
			UserID:    userID,
			Field:     p.Field,
			Expected:  expected,
			ClaimedAt: now,
			Reward:    reward,
		},
		Record:       record,
		NextEligible: now.Add(p.Cooldown),
	}
}

func (p Policy) message(d Decision) string {
	switch {
	case !d.Allowed:
		return WaitMessage(d.Remaining)
	case d.FirstClaim:
		return p.WelcomeMessage
	default:
		return p.SuccessMessage
	}
}

// SplitRemaining floors d into whole hours and the leftover whole minutes.
func SplitRemaining(d time.Duration) (hours, minutes int64) {
	if d < 0 {
		return 0, 0
	}
	hours = int64(d / time.Hour)
	minutes = int64((d % time.Hour) / time.Minute)
	return hours, minutes
}

func WaitMessage(remaining time.Duration) string {
	hours, minutes := SplitRemaining(remaining)
	return fmt.Sprintf("Come back in %dh %dm!", hours, minutes)
}
