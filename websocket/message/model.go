package message

import (
	"encoding/json"

	"github.com/thesrcielos/QuizBattle/internal/game"
)

// Incoming message types.
const (
	QueueJoin   = "QUEUE_JOIN"
	QueueLeave  = "QUEUE_LEAVE"
	QueueBot    = "QUEUE_BOT"
	WatchLobby  = "WATCH_LOBBY"
	Answer      = "ANSWER"
	Guess       = "GUESS"
	Stroke      = "STROKE"
	ClearCanvas = "CLEAR_CANVAS"
	Leave       = "LEAVE"
)

// Outgoing message types.
const (
	StoreEvent    = "STORE_EVENT"
	Matched       = "MATCHED"
	Queued        = "QUEUED"
	LobbySnapshot = "LOBBY_SNAPSHOT"
	Ack           = "ACK"
	Error         = "ERROR"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type LobbyPayload struct {
	LobbyID string `json:"lobbyId"`
}

type AnswerPayload struct {
	LobbyID string `json:"lobbyId"`
	Index   int    `json:"index"`
	Choice  int    `json:"choice"`
}

type GuessPayload struct {
	LobbyID string `json:"lobbyId"`
	Text    string `json:"text"`
}

type StrokePayload struct {
	LobbyID string           `json:"lobbyId"`
	Point   game.StrokePoint `json:"point"`
}

// SnapshotPayload catches a late watcher up on a lobby.
type SnapshotPayload struct {
	Lobby   *game.Lobby      `json:"lobby"`
	Session json.RawMessage  `json:"session,omitempty"`
	Strokes []game.Stroke    `json:"strokes,omitempty"`
	Chat    []game.ChatEntry `json:"chat,omitempty"`
}

type ErrorPayload struct {
	Request string `json:"request"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}
