package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"yafs_miniapp/internal/model"
)

type referralKey struct {
	referrer string
	referred string
}

// Memory keeps users and referrals in process memory with the same
// conditional-write semantics as Repository. It backs local runs and tests.
type Memory struct {
	users     map[string]model.User
	referrals map[referralKey]model.Referral
	sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]model.User),
		referrals: make(map[referralKey]model.Referral),
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) ApplyClaim(ctx context.Context, upd model.ClaimUpdate) (*model.User, error) {
	if !upd.Field.Valid() {
		return nil, fmt.Errorf("%w: %q", errUnknownClaimField, upd.Field)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	user, exists := m.users[upd.UserID]
	if upd.Create {
		if exists {
			return nil, ErrConflict
		}
		user = model.User{
			ID:         upd.UserID,
			TotalCoins: upd.Reward,
			CreatedAt:  upd.ClaimedAt,
		}
		user.SetClaimedAt(upd.Field, upd.ClaimedAt)
		m.users[upd.UserID] = user
		return &user, nil
	}

	if !exists || !sameInstant(user.ClaimedAt(upd.Field), upd.Expected) {
		return nil, ErrConflict
	}

	user.TotalCoins += upd.Reward
	user.SetClaimedAt(upd.Field, upd.ClaimedAt)
	m.users[upd.UserID] = user
	return &user, nil
}

func (m *Memory) CreateReferral(ctx context.Context, ref *model.Referral) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ref.ReferrerID == ref.ReferredUserID {
		return 0, ErrSelfReferral
	}

	m.Lock()
	defer m.Unlock()

	key := referralKey{referrer: ref.ReferrerID, referred: ref.ReferredUserID}
	if _, ok := m.referrals[key]; ok {
		return 0, ErrAlreadyReferred
	}
	m.referrals[key] = *ref

	user, ok := m.users[ref.ReferrerID]
	if !ok {
		user = model.User{ID: ref.ReferrerID, CreatedAt: ref.CreatedAt}
	}
	user.TotalCoins += ref.BonusAmount
	m.users[ref.ReferrerID] = user

	return user.TotalCoins, nil
}

func (m *Memory) ListReferrals(ctx context.Context, referrerID string) ([]*model.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	refs := make([]*model.Referral, 0)
	for key, ref := range m.referrals {
		if key.referrer != referrerID {
			continue
		}
		ref := ref
		refs = append(refs, &ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].ReferredUserID < refs[j].ReferredUserID
		}
		return refs[i].CreatedAt.After(refs[j].CreatedAt)
	})

	return refs, nil
}

func sameInstant(current, expected *time.Time) bool {
	if current == nil || expected == nil {
		return current == nil && expected == nil
	}
	return current.Equal(*expected)
}
