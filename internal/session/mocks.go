package session

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) Resolve(ctx context.Context, result game.MatchResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
