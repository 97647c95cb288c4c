package actions

import (
	"context"

	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/message"
)

func (a *Actions) HandleAnswer(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.AnswerPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	outcome, err := a.sessions.Answer(ctx, payload.LobbyID, conn.PlayerID, payload.Index, payload.Choice)
	if err != nil {
		return err
	}
	a.ack(conn, msg.Type, outcome)
	return nil
}

func (a *Actions) HandleGuess(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.GuessPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	outcome, err := a.sessions.Guess(ctx, payload.LobbyID, conn.PlayerID, payload.Text)
	if err != nil {
		return err
	}
	a.ack(conn, msg.Type, outcome)
	return nil
}

// HandleStroke is not acknowledged; the point itself comes back through the
// lobby watch.
func (a *Actions) HandleStroke(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.StrokePayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	return a.sessions.Stroke(ctx, payload.LobbyID, conn.PlayerID, payload.Point)
}

func (a *Actions) HandleClearCanvas(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.LobbyPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	return a.sessions.ClearCanvas(ctx, payload.LobbyID, conn.PlayerID)
}
