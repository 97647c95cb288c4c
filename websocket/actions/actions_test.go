package actions

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/matchmaking"
	"github.com/thesrcielos/QuizBattle/internal/session"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"github.com/thesrcielos/QuizBattle/websocket/transport"
	"go.uber.org/zap"
)

type recordingConn struct {
	mu      sync.Mutex
	written []transport.OutgoingMessage
}

func (r *recordingConn) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, v.(transport.OutgoingMessage))
	return nil
}

func (r *recordingConn) Close() error { return nil }

func (r *recordingConn) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, m := range r.written {
		out = append(out, m.Type)
	}
	return out
}

func (r *recordingConn) find(msgType string) (transport.OutgoingMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.written {
		if m.Type == msgType {
			return m, true
		}
	}
	return transport.OutgoingMessage{}, false
}

type lobbyStub struct {
	lobby *game.Lobby
}

func (s lobbyStub) Get(ctx context.Context, lobbyID string) (*game.Lobby, error) {
	if s.lobby == nil || s.lobby.ID != lobbyID {
		return nil, apperrors.NotFound("lobby not found")
	}
	return s.lobby, nil
}

func (s lobbyStub) Leave(ctx context.Context, lobbyID, playerID string) error { return nil }

func charadesLobby() *game.Lobby {
	return &game.Lobby{
		ID:     "l1",
		Mode:   game.ModeCharades,
		Status: game.StatusRunning,
		Players: map[string]*game.PlayerSlot{
			"1": game.NewSlot(game.Player{ID: "1", DisplayName: "ann"}),
			"2": game.NewSlot(game.Player{ID: "2", DisplayName: "ben"}),
		},
	}
}

func TestForward_TranslatesMatchNotice(t *testing.T) {
	st := store.NewMemoryStore()
	a := New(nil, nil, lobbyStub{}, nil, st, zap.NewNop())
	raw := &recordingConn{}
	conn := state.NewRegistry().Register("c1", "1", raw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, stop, err := st.Subscribe(ctx, store.Join("players", "1"))
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		a.Forward(conn, events)
		close(done)
	}()

	require.NoError(t, st.Set(ctx, matchmaking.MatchPath("1"), matchmaking.Result{Matched: true, LobbyID: "duel-1"}))
	require.NoError(t, st.Set(ctx, session.EventsPath("1"), session.PlayerEvent{Type: session.EventQuestion}))

	assert.Eventually(t, func() bool { return len(raw.types()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{message.Matched, message.StoreEvent}, raw.types())

	stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarding did not stop")
	}
}

func TestHandleWatchLobby_SnapshotReplaysCanvas(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	a := New(nil, nil, lobbyStub{lobby: charadesLobby()}, nil, st, zap.NewNop())

	for _, p := range []game.StrokePoint{
		{X: 1, Y: 1, Type: game.PointStart, Color: "red", Width: 2},
		{X: 2, Y: 2, Type: game.PointDraw, Color: "red", Width: 2},
		{X: 9, Y: 9, Type: game.PointStart, Color: "blue", Width: 4},
	} {
		_, err := st.Append(ctx, session.StrokesPath("l1"), p)
		require.NoError(t, err)
	}
	_, err := st.Append(ctx, session.ChatPath("l1"), game.ChatEntry{PlayerID: "2", Text: "dog?"})
	require.NoError(t, err)

	raw := &recordingConn{}
	conn := state.NewRegistry().Register("c1", "2", raw)
	payload, _ := json.Marshal(message.LobbyPayload{LobbyID: "l1"})
	require.NoError(t, a.HandleWatchLobby(ctx, conn, message.Message{Type: message.WatchLobby, Payload: payload}))
	defer conn.UnwatchAll()

	out, ok := raw.find(message.LobbySnapshot)
	require.True(t, ok)
	snapshot := out.Payload.(message.SnapshotPayload)
	require.Len(t, snapshot.Strokes, 2)
	assert.Len(t, snapshot.Strokes[0].Points, 2)
	assert.Equal(t, "blue", snapshot.Strokes[1].Color)
	require.Len(t, snapshot.Chat, 1)

	// Later writes below the lobby are streamed.
	require.NoError(t, st.Set(ctx, lobby.LobbyPath("l1"), charadesLobby()))
	assert.Eventually(t, func() bool {
		_, ok := raw.find(message.StoreEvent)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestHandleWatchLobby_RejectsOutsiders(t *testing.T) {
	a := New(nil, nil, lobbyStub{lobby: charadesLobby()}, nil, store.NewMemoryStore(), zap.NewNop())
	conn := state.NewRegistry().Register("c9", "9", &recordingConn{})
	payload, _ := json.Marshal(message.LobbyPayload{LobbyID: "l1"})

	err := a.HandleWatchLobby(context.Background(), conn, message.Message{Type: message.WatchLobby, Payload: payload})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}
