package match

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thesrcielos/QuizBattle/internal/rating"
)

type RatingRecorderMock struct {
	mock.Mock
}

func (m *RatingRecorderMock) GetRating(ctx context.Context, playerID string) (*rating.PlayerRating, error) {
	args := m.Called(ctx, playerID)
	if r := args.Get(0); r != nil {
		return r.(*rating.PlayerRating), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RatingRecorderMock) RecordMatch(ctx context.Context, playerID string, opponentRating int, won bool, multiplier float64) (*rating.MatchOutcome, error) {
	args := m.Called(ctx, playerID, opponentRating, won, multiplier)
	if r := args.Get(0); r != nil {
		return r.(*rating.MatchOutcome), args.Error(1)
	}
	return nil, args.Error(1)
}

type ProfilesMock struct {
	mock.Mock
}

func (m *ProfilesMock) ActiveMultiplier(ctx context.Context, playerID string) (float64, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *ProfilesMock) AddXP(ctx context.Context, playerID string, delta int) error {
	args := m.Called(ctx, playerID, delta)
	return args.Error(0)
}

func (m *ProfilesMock) SetRating(ctx context.Context, playerID string, rating int) error {
	args := m.Called(ctx, playerID, rating)
	return args.Error(0)
}

type LobbyFinisherMock struct {
	mock.Mock
}

func (m *LobbyFinisherMock) Finish(ctx context.Context, lobbyID string) error {
	args := m.Called(ctx, lobbyID)
	return args.Error(0)
}
