package actions

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/matchmaking"
	"github.com/thesrcielos/QuizBattle/internal/session"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"github.com/thesrcielos/QuizBattle/internal/user"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"github.com/thesrcielos/QuizBattle/websocket/transport"
	"go.uber.org/zap"
)

type Queue interface {
	Enqueue(ctx context.Context, req matchmaking.Request) (matchmaking.Result, error)
	Dequeue(ctx context.Context, playerID string) error
	FallbackToBot(ctx context.Context, playerID string) (matchmaking.Result, error)
}

type Sessions interface {
	Answer(ctx context.Context, lobbyID, playerID string, index, choice int) (session.AnswerOutcome, error)
	Guess(ctx context.Context, lobbyID, playerID, text string) (session.GuessOutcome, error)
	Stroke(ctx context.Context, lobbyID, playerID string, point game.StrokePoint) error
	ClearCanvas(ctx context.Context, lobbyID, playerID string) error
}

type Lobbies interface {
	Get(ctx context.Context, lobbyID string) (*game.Lobby, error)
	Leave(ctx context.Context, lobbyID, playerID string) error
}

type Identities interface {
	GetIdentity(ctx context.Context, playerID string) (user.Identity, error)
}

// Actions executes websocket requests against the game core on behalf of a
// connected player.
type Actions struct {
	queue      Queue
	sessions   Sessions
	lobbies    Lobbies
	identities Identities
	store      store.Store
	log        *zap.Logger
}

func New(queue Queue, sessions Sessions, lobbies Lobbies, identities Identities, st store.Store, log *zap.Logger) *Actions {
	return &Actions{
		queue:      queue,
		sessions:   sessions,
		lobbies:    lobbies,
		identities: identities,
		store:      st,
		log:        log,
	}
}

func decode(msg message.Message, dst interface{}) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return apperrors.NewAppError(400, "invalid payload", err)
	}
	return nil
}

func (a *Actions) ack(conn *state.Connection, request string, payload interface{}) {
	transport.Send(conn, transport.OutgoingMessage{
		Type:    message.Ack,
		Payload: map[string]interface{}{"request": request, "result": payload},
	}, a.log)
}

// Forward relays store events to the connection until events is closed. A
// pairing notice written for the player becomes a MATCHED message.
func (a *Actions) Forward(conn *state.Connection, events <-chan store.Event) {
	for ev := range events {
		if strings.HasSuffix(ev.Path, "/match") {
			if ev.Kind == store.EventSet {
				transport.Send(conn, transport.OutgoingMessage{Type: message.Matched, Payload: ev.Value}, a.log)
			}
			continue
		}
		transport.Send(conn, transport.OutgoingMessage{Type: message.StoreEvent, Payload: ev}, a.log)
	}
}

// Disconnect runs the store's disconnect hooks for a closed connection.
func (a *Actions) Disconnect(ctx context.Context, conn *state.Connection) {
	conn.UnwatchAll()
	if err := a.store.Disconnect(ctx, conn.ID); err != nil {
		a.log.Warn("error running disconnect hooks", zap.String("conn_id", conn.ID), zap.Error(err))
	}
}
