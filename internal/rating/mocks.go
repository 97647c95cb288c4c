package rating

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type RatingRepositoryMock struct {
	mock.Mock
}

func (m *RatingRepositoryMock) GetOrCreate(ctx context.Context, playerID string) (*PlayerRating, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PlayerRating), args.Error(1)
}

func (m *RatingRepositoryMock) Save(ctx context.Context, rating *PlayerRating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *RatingRepositoryMock) Top(ctx context.Context, limit int) ([]PlayerRating, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]PlayerRating), args.Error(1)
}
