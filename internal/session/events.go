package session

import (
	"time"

	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/store"
)

// Private per-player event types, written to players/<id>/events.
const (
	EventQuestion                = "QUESTION"
	EventAnswerResult            = "ANSWER_RESULT"
	EventIntermissionLeaderboard = "INTERMISSION_LEADERBOARD"
	EventIntermissionCountdown   = "INTERMISSION_COUNTDOWN"
	EventPlayerFinished          = "PLAYER_FINISHED"
	EventMatchComplete           = "MATCH_COMPLETE"
	EventSecretWord              = "SECRET_WORD"
	EventGuessResult             = "GUESS_RESULT"
	EventChat                    = "CHAT"
)

func EventsPath(playerID string) string {
	return store.Join("players", playerID, "events")
}

func SessionPath(lobbyID string) string {
	return store.Join(lobby.LobbyPath(lobbyID), "session")
}

func ChatPath(lobbyID string) string {
	return store.Join(lobby.LobbyPath(lobbyID), "chat")
}

func StrokesPath(lobbyID string) string {
	return store.Join(lobby.LobbyPath(lobbyID), "strokes")
}

type PlayerEvent struct {
	Type    string    `json:"type"`
	LobbyID string    `json:"lobbyId"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

type QuestionPayload struct {
	Index     int                 `json:"index"`
	Total     int                 `json:"total"`
	Question  game.PublicQuestion `json:"question"`
	Deadline  time.Time           `json:"deadline"`
	TimeLimit int                 `json:"timeLimit"`
}

type LeaderboardPayload struct {
	Checkpoint int             `json:"checkpoint"`
	Standings  []game.Standing `json:"standings"`
	Rank       int             `json:"rank"`
}

type CountdownPayload struct {
	Seconds   int    `json:"seconds"`
	NextTopic string `json:"nextTopic"`
}

type FinishedPayload struct {
	Score int `json:"score"`
	Rank  int `json:"rank"`
}

type SecretWordPayload struct {
	Round int    `json:"round"`
	Word  string `json:"word"`
}

// QuizView is the public state of a quiz session at lobbies/<id>/session.
type QuizView struct {
	LobbyID         string          `json:"lobbyId"`
	Mode            game.Mode       `json:"mode"`
	Finished        bool            `json:"finished"`
	TotalQuestions  int             `json:"totalQuestions"`
	TimePerQuestion int             `json:"timePerQuestion"`
	Standings       []game.Standing `json:"standings"`
}
