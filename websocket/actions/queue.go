package actions

import (
	"context"

	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/matchmaking"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"github.com/thesrcielos/QuizBattle/websocket/transport"
)

func (a *Actions) HandleQueueJoin(ctx context.Context, conn *state.Connection, msg message.Message) error {
	identity, err := a.identities.GetIdentity(ctx, conn.PlayerID)
	if err != nil {
		return err
	}
	result, err := a.queue.Enqueue(ctx, matchmaking.Request{
		Player: game.Player{ID: identity.ID, DisplayName: identity.DisplayName, AvatarRef: identity.AvatarRef},
		Rating: identity.Rating,
		ConnID: conn.ID,
	})
	if err != nil {
		return err
	}

	reply := message.Queued
	if result.Matched {
		reply = message.Matched
	}
	transport.Send(conn, transport.OutgoingMessage{Type: reply, Payload: result}, a.log)
	return nil
}

func (a *Actions) HandleQueueLeave(ctx context.Context, conn *state.Connection, msg message.Message) error {
	if err := a.queue.Dequeue(ctx, conn.PlayerID); err != nil {
		return err
	}
	a.ack(conn, msg.Type, nil)
	return nil
}

func (a *Actions) HandleQueueBot(ctx context.Context, conn *state.Connection, msg message.Message) error {
	result, err := a.queue.FallbackToBot(ctx, conn.PlayerID)
	if err != nil {
		return err
	}
	transport.Send(conn, transport.OutgoingMessage{Type: message.Matched, Payload: result}, a.log)
	return nil
}
