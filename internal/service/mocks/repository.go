package mocks

import (
	"context"

	"yafs_miniapp/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) ApplyClaim(ctx context.Context, upd model.ClaimUpdate) (*model.User, error) {
	args := m.Called(ctx, upd)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) CreateReferral(ctx context.Context, ref *model.Referral) (int64, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReferralRepository) ListReferrals(ctx context.Context, referrerID string) ([]*model.Referral, error) {
	args := m.Called(ctx, referrerID)
	refs, _ := args.Get(0).([]*model.Referral)
	return refs, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ReferralCredited(ctx context.Context, referrerID string, bonus, total int64) {
	m.Called(ctx, referrerID, bonus, total)
}
