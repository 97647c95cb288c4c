package user

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, username, password, displayName string) (*User, error) {
	args := m.Called(ctx, username, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) ValidateUser(ctx context.Context, username, password string) (*User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetUser(ctx context.Context, id uint) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) AddXP(ctx context.Context, id uint, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockUserRepository) SetRating(ctx context.Context, id uint, rating int) error {
	args := m.Called(ctx, id, rating)
	return args.Error(0)
}

func (m *MockUserRepository) ActiveBoosts(ctx context.Context, id uint, at time.Time) ([]ScoreBoost, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).([]ScoreBoost), args.Error(1)
}
