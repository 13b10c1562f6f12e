package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yafs_miniapp/internal/model"
	"yafs_miniapp/internal/repository"
	"yafs_miniapp/internal/service/mocks"
	"yafs_miniapp/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newTestRewardService(repo UserRepository, now time.Time) *RewardService {
	box := BoxPolicy(DefaultBoxCooldown, 10, 100)
	box.Reward = FixedReward(42)
	return NewRewardService(repo, box, MiningPolicy(DefaultMiningCooldown, DefaultMiningReward)).
		WithClock(fixedClock(now))
}

func TestRewardService_Claim(t *testing.T) {
	identity := auth.Demo("demo_abc")
	storeErr := errors.New("connection reset")

	tests := []struct {
		name       string
		kind       model.RewardKind
		now        time.Time
		setupMocks func(*mocks.MockUserRepository)
		wantErr    error
		check      func(*testing.T, *ClaimResult)
	}{
		{
			name: "first box claim creates the record",
			kind: model.RewardBox,
			now:  t0,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").Return(nil, repository.ErrNotFound).Once()
				repo.On("ApplyClaim", mock.Anything, model.ClaimUpdate{
					UserID:    "demo_abc",
					Field:     model.FieldLastClaim,
					Create:    true,
					ClaimedAt: t0,
					Reward:    42,
				}).Return(&model.User{ID: "demo_abc", TotalCoins: 42, LastClaim: timePtr(t0)}, nil).Once()
			},
			check: func(t *testing.T, res *ClaimResult) {
				assert.True(t, res.Allowed)
				assert.True(t, res.FirstClaim)
				assert.Equal(t, int64(42), res.Reward)
				assert.Equal(t, int64(42), res.TotalCoins)
				assert.Equal(t, "Welcome! First reward claimed!", res.Message)
				assert.Equal(t, t0.Add(24*time.Hour), res.NextEligible)
			},
		},
		{
			name: "mining during cooldown is refused",
			kind: model.RewardMining,
			now:  t0.Add(30 * time.Minute),
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").
					Return(&model.User{ID: "demo_abc", TotalCoins: 5, LastMining: timePtr(t0)}, nil).Once()
			},
			check: func(t *testing.T, res *ClaimResult) {
				assert.False(t, res.Allowed)
				assert.Zero(t, res.Reward)
				assert.Equal(t, "Come back in 1h 30m!", res.Message)
				assert.Equal(t, t0.Add(2*time.Hour), res.NextEligible)
			},
		},
		{
			name: "mining after cooldown",
			kind: model.RewardMining,
			now:  t0.Add(2 * time.Hour),
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").
					Return(&model.User{ID: "demo_abc", TotalCoins: 5, LastMining: timePtr(t0)}, nil).Once()
				repo.On("ApplyClaim", mock.Anything, model.ClaimUpdate{
					UserID:    "demo_abc",
					Field:     model.FieldLastMining,
					Expected:  timePtr(t0),
					ClaimedAt: t0.Add(2 * time.Hour),
					Reward:    5,
				}).Return(&model.User{ID: "demo_abc", TotalCoins: 10}, nil).Once()
			},
			check: func(t *testing.T, res *ClaimResult) {
				assert.True(t, res.Allowed)
				assert.False(t, res.FirstClaim)
				assert.Equal(t, int64(10), res.TotalCoins)
				assert.Equal(t, "Mining claimed successfully!", res.Message)
				assert.Equal(t, t0.Add(4*time.Hour), res.NextEligible)
			},
		},
		{
			name: "lost race is re-decided from a fresh read",
			kind: model.RewardBox,
			now:  t0,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").Return(nil, repository.ErrNotFound).Once()
				repo.On("ApplyClaim", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Once()
				repo.On("GetUser", mock.Anything, "demo_abc").
					Return(&model.User{ID: "demo_abc", TotalCoins: 42, LastClaim: timePtr(t0)}, nil).Once()
			},
			check: func(t *testing.T, res *ClaimResult) {
				assert.False(t, res.Allowed)
				assert.Equal(t, int64(42), res.TotalCoins)
			},
		},
		{
			name: "contention exhausts retries",
			kind: model.RewardBox,
			now:  t0,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").Return(nil, repository.ErrNotFound).Times(maxClaimAttempts)
				repo.On("ApplyClaim", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Times(maxClaimAttempts)
			},
			wantErr: ErrClaimContention,
		},
		{
			name: "read failure",
			kind: model.RewardBox,
			now:  t0,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").Return(nil, storeErr).Once()
			},
			wantErr: storeErr,
		},
		{
			name: "write failure",
			kind: model.RewardBox,
			now:  t0,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetUser", mock.Anything, "demo_abc").Return(nil, repository.ErrNotFound).Once()
				repo.On("ApplyClaim", mock.Anything, mock.Anything).Return(nil, storeErr).Once()
			},
			wantErr: storeErr,
		},
		{
			name:       "unknown reward kind",
			kind:       "lottery",
			now:        t0,
			setupMocks: func(*mocks.MockUserRepository) {},
			wantErr:    ErrUnknownReward,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockUserRepository{}
			tt.setupMocks(repo)
			svc := newTestRewardService(repo, tt.now)

			res, err := svc.Claim(context.Background(), tt.kind, identity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				tt.check(t, res)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestRewardService_ClaimRequiresIdentity(t *testing.T) {
	repo := &mocks.MockUserRepository{}
	svc := newTestRewardService(repo, t0)

	_, err := svc.Claim(context.Background(), model.RewardBox, auth.Identity{})
	assert.ErrorIs(t, err, ErrAnonymousClaimant)
	repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestRewardService_TruncatesClaimTime(t *testing.T) {
	store := repository.NewMemory()
	now := t0.Add(123456789 * time.Nanosecond)
	svc := newTestRewardService(store, now)

	_, err := svc.Claim(context.Background(), model.RewardBox, auth.Demo("demo_abc"))
	require.NoError(t, err)

	user, err := store.GetUser(context.Background(), "demo_abc")
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(time.Microsecond), *user.LastClaim)
}

func TestRewardService_ConcurrentClaimsPayOnce(t *testing.T) {
	store := repository.NewMemory()
	svc := newTestRewardService(store, t0)
	identity := auth.Demo("demo_race")

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Claim(context.Background(), model.RewardBox, identity)
			if !assert.NoError(t, err) {
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed)
	user, err := store.GetUser(context.Background(), "demo_race")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.TotalCoins)
}

func TestRewardService_DemoBoxFlow(t *testing.T) {
	store := repository.NewMemory()
	now := t0
	box := BoxPolicy(DefaultBoxCooldown, 10, 100)
	svc := NewRewardService(store, box).WithClock(func() time.Time { return now })
	identity := auth.Demo("demo_abc")

	first, err := svc.Claim(context.Background(), model.RewardBox, identity)
	require.NoError(t, err)
	require.True(t, first.Allowed)
	assert.GreaterOrEqual(t, first.Reward, int64(10))
	assert.LessOrEqual(t, first.Reward, int64(100))

	now = t0.Add(time.Second)
	second, err := svc.Claim(context.Background(), model.RewardBox, identity)
	require.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, "Come back in 23h 59m!", second.Message)

	now = t0.Add(24*time.Hour + time.Second)
	third, err := svc.Claim(context.Background(), model.RewardBox, identity)
	require.NoError(t, err)
	require.True(t, third.Allowed)
	assert.Equal(t, first.Reward+third.Reward, third.TotalCoins)
}
