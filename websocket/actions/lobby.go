package actions

import (
	"context"
	"encoding/json"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/session"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"github.com/thesrcielos/QuizBattle/websocket/transport"
	"go.uber.org/zap"
)

// HandleWatchLobby sends a member the lobby's current state and then streams
// every change below it.
func (a *Actions) HandleWatchLobby(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.LobbyPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	l, err := a.lobbies.Get(ctx, payload.LobbyID)
	if err != nil {
		return err
	}
	if _, ok := l.Players[conn.PlayerID]; !ok {
		return apperrors.Forbidden("not a member of this lobby")
	}

	snapshot, err := a.snapshot(ctx, l)
	if err != nil {
		return err
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	events, cancel, err := a.store.Subscribe(watchCtx, lobby.LobbyPath(l.ID))
	if err != nil {
		cancelWatch()
		return apperrors.TransientSyncFailure("error watching lobby", err)
	}
	stop := func() {
		cancel()
		cancelWatch()
	}
	if !conn.Watch(l.ID, stop) {
		stop()
	} else {
		go a.Forward(conn, events)
	}

	transport.Send(conn, transport.OutgoingMessage{Type: message.LobbySnapshot, Payload: snapshot}, a.log)
	return nil
}

func (a *Actions) snapshot(ctx context.Context, l *game.Lobby) (message.SnapshotPayload, error) {
	out := message.SnapshotPayload{Lobby: l}

	var view json.RawMessage
	if found, err := a.store.Get(ctx, session.SessionPath(l.ID), &view); err != nil {
		return out, apperrors.TransientSyncFailure("error reading session", err)
	} else if found {
		out.Session = view
	}
	if l.Mode != game.ModeCharades {
		return out, nil
	}

	rawPoints, err := a.store.List(ctx, session.StrokesPath(l.ID))
	if err != nil {
		return out, apperrors.TransientSyncFailure("error reading canvas", err)
	}
	points := make([]game.StrokePoint, 0, len(rawPoints))
	for _, raw := range rawPoints {
		var p game.StrokePoint
		if err := json.Unmarshal(raw, &p); err != nil {
			a.log.Warn("skipping malformed stroke point", zap.String("lobby_id", l.ID), zap.Error(err))
			continue
		}
		points = append(points, p)
	}
	out.Strokes = game.Replay(points)

	rawChat, err := a.store.List(ctx, session.ChatPath(l.ID))
	if err != nil {
		return out, apperrors.TransientSyncFailure("error reading chat", err)
	}
	for _, raw := range rawChat {
		var entry game.ChatEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			out.Chat = append(out.Chat, entry)
		}
	}
	return out, nil
}

func (a *Actions) HandleLeave(ctx context.Context, conn *state.Connection, msg message.Message) error {
	var payload message.LobbyPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	if err := a.lobbies.Leave(ctx, payload.LobbyID, conn.PlayerID); err != nil {
		return err
	}
	conn.Unwatch(payload.LobbyID)
	a.ack(conn, msg.Type, nil)
	return nil
}
