package model

import (
	"time"

	"github.com/google/uuid"
)

type Referral struct {
	ID             uuid.UUID
	ReferrerID     string
	ReferredUserID string
	BonusAmount    int64
	CreatedAt      time.Time
}
