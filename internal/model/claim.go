package model

import "time"

// ClaimField names the users column that gates a reward's cooldown.
type ClaimField string

const (
	FieldLastClaim  ClaimField = "last_claim"
	FieldLastMining ClaimField = "last_mining"
)

func (f ClaimField) Valid() bool {
	return f == FieldLastClaim || f == FieldLastMining
}

type RewardKind string

const (
	RewardBox    RewardKind = "box"
	RewardMining RewardKind = "mining"
)

// ClaimUpdate is a conditional write: it applies only while the gating field
// still holds Expected (nil meaning unset). With Create set the row must not
// exist yet.
type ClaimUpdate struct {
	UserID    string
	Field     ClaimField
	Create    bool
	Expected  *time.Time
	ClaimedAt time.Time
	Reward    int64
}
