package lobby

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type SessionRunnerMock struct {
	mock.Mock
}

func (m *SessionRunnerMock) Run(ctx context.Context, launch Launch) error {
	args := m.Called(ctx, launch)
	return args.Error(0)
}

func (m *SessionRunnerMock) PlayerLeft(lobbyID, playerID string) bool {
	args := m.Called(lobbyID, playerID)
	return args.Bool(0)
}

func (m *SessionRunnerMock) Stop(lobbyID string) {
	m.Called(lobbyID)
}

func (m *SessionRunnerMock) Running(lobbyID string) bool {
	args := m.Called(lobbyID)
	return args.Bool(0)
}
