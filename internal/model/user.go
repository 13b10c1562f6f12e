package model

import "time"

type User struct {
	ID         string
	TotalCoins int64
	LastClaim  *time.Time
	LastMining *time.Time
	CreatedAt  time.Time
}

// ClaimedAt returns the gating timestamp stored in field.
func (u *User) ClaimedAt(field ClaimField) *time.Time {
	switch field {
	case FieldLastClaim:
		return u.LastClaim
	case FieldLastMining:
		return u.LastMining
	default:
		return nil
	}
}

func (u *User) SetClaimedAt(field ClaimField, t time.Time) {
	switch field {
	case FieldLastClaim:
		u.LastClaim = &t
	case FieldLastMining:
		u.LastMining = &t
	}
}
