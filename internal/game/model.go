package game

import (
	"time"
)

type Mode string

const (
	ModeQuizGroup Mode = "quiz_group"
	ModeQuizDuel  Mode = "quiz_duel"
	ModeCharades  Mode = "charades"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeQuizGroup, ModeQuizDuel, ModeCharades:
		return true
	}
	return false
}

func (m Mode) IsQuiz() bool {
	return m == ModeQuizGroup || m == ModeQuizDuel
}

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusConfig   Status = "IN_LOBBY_CONFIG"
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
)

var statusOrder = map[Status]int{
	StatusWaiting:  0,
	StatusConfig:   1,
	StatusRunning:  2,
	StatusFinished: 3,
}

// CanTransition allows forward moves only; skipping IN_LOBBY_CONFIG is legal.
func (s Status) CanTransition(to Status) bool {
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	next, ok := statusOrder[to]
	if !ok {
		return false
	}
	return next > from
}

// Joinable reports whether new players may still enter the lobby.
func (s Status) Joinable() bool {
	return s == StatusWaiting || s == StatusConfig
}

type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	TopicLabel    string   `json:"topicLabel"`
}

// PublicQuestion is what participants see; the answer stays on the server.
type PublicQuestion struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	TopicLabel string   `json:"topicLabel"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options, TopicLabel: q.TopicLabel}
}

type ContentSelection struct {
	Topics []string `json:"topics"`
	Count  int      `json:"count"`
}

type QuizConfig struct {
	Selection       ContentSelection `json:"selection"`
	TimePerQuestion int              `json:"timePerQuestion"`
	Questions       []PublicQuestion `json:"questions,omitempty"`
	Checkpoints     []int            `json:"checkpoints,omitempty"`
}

type CharadesConfig struct {
	DurationSeconds int `json:"durationSeconds"`
	TotalRounds     int `json:"totalRounds"`
}

type Lobby struct {
	ID         string                 `json:"id"`
	Mode       Mode                   `json:"mode"`
	Pin        string                 `json:"pin,omitempty"`
	HostID     string                 `json:"hostId"`
	Status     Status                 `json:"status"`
	Players    map[string]*PlayerSlot `json:"players"`
	Quiz       *QuizConfig            `json:"quiz,omitempty"`
	Charades   *CharadesConfig        `json:"charades,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	StartedAt  *time.Time             `json:"startedAt,omitempty"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
}

func (l *Lobby) Slots() []PlayerSlot {
	slots := make([]PlayerSlot, 0, len(l.Players))
	for _, slot := range l.Players {
		slots = append(slots, *slot)
	}
	return slots
}

func (l *Lobby) Humans() []string {
	ids := []string{}
	for id, slot := range l.Players {
		if !slot.IsBot {
			ids = append(ids, id)
		}
	}
	return ids
}

func (l *Lobby) HasBot() bool {
	for _, slot := range l.Players {
		if slot.IsBot {
			return true
		}
	}
	return false
}

type MatchResult struct {
	LobbyID   string     `json:"lobbyId"`
	Mode      Mode       `json:"mode"`
	Standings []Standing `json:"standings"`
}
