package router

import (
	"context"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/actions"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"github.com/thesrcielos/QuizBattle/websocket/transport"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, conn *state.Connection, msg message.Message) error

type Router struct {
	handlers map[string]HandlerFunc
	log      *zap.Logger
}

func NewRouter(a *actions.Actions, log *zap.Logger) *Router {
	return &Router{
		handlers: map[string]HandlerFunc{
			message.QueueJoin:   a.HandleQueueJoin,
			message.QueueLeave:  a.HandleQueueLeave,
			message.QueueBot:    a.HandleQueueBot,
			message.WatchLobby:  a.HandleWatchLobby,
			message.Answer:      a.HandleAnswer,
			message.Guess:       a.HandleGuess,
			message.Stroke:      a.HandleStroke,
			message.ClearCanvas: a.HandleClearCanvas,
			message.Leave:       a.HandleLeave,
		},
		log: log,
	}
}

// RouteMessage runs the handler for msg; failures go back to the sender only.
func (r *Router) RouteMessage(ctx context.Context, conn *state.Connection, msg message.Message) {
	handler, ok := r.handlers[msg.Type]
	if !ok {
		r.log.Debug("unknown message type", zap.String("type", msg.Type), zap.String("player_id", conn.PlayerID))
		transport.SendError(conn, msg.Type, apperrors.NewAppError(400, "unknown message type", nil), r.log)
		return
	}
	if err := handler(ctx, conn, msg); err != nil {
		r.log.Debug("request failed",
			zap.String("type", msg.Type),
			zap.String("player_id", conn.PlayerID),
			zap.Error(err),
		)
		transport.SendError(conn, msg.Type, err, r.log)
	}
}
