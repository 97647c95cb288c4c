package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

func makeQuestions(n int) []game.Question {
	qs := make([]game.Question, n)
	for i := range qs {
		qs[i] = game.Question{
			ID:            fmt.Sprintf("q%d", i),
			Prompt:        "prompt",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: i % 3,
			TopicLabel:    fmt.Sprintf("topic %d", i/3),
		}
	}
	return qs
}

func makeLobby(mode game.Mode, players ...game.Player) *game.Lobby {
	l := &game.Lobby{ID: "lobby-1", Mode: mode, Status: game.StatusRunning, Players: map[string]*game.PlayerSlot{}}
	for i, p := range players {
		if i == 0 {
			l.HostID = p.ID
		}
		l.Players[p.ID] = game.NewSlot(p)
	}
	return l
}

var (
	ann = game.Player{ID: "1", DisplayName: "ann"}
	ben = game.Player{ID: "2", DisplayName: "ben"}
	cat = game.Player{ID: "3", DisplayName: "cat"}
)

func TestQuizGame_GroupRunIntermitsAtCheckpoints(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := makeQuestions(10)
	q := NewQuizGame(makeLobby(game.ModeQuizGroup, ann, ben), questions, 10*time.Second, now)

	intermissions := []int{}
	for i := 0; i < 10; i++ {
		idx, _, ok := q.Current(ann.ID)
		require.True(t, ok)
		require.Equal(t, i, idx)

		out, err := q.Answer(ann.ID, i, questions[i].CorrectAnswer, now.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, out.Correct)
		if out.Intermission {
			intermissions = append(intermissions, i)
			_, err := q.Answer(ann.ID, i+1, 0, now)
			assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
			next, ok := q.Resume(ann.ID, now)
			require.True(t, ok)
			assert.Equal(t, i+1, next)
		}
		if i == 9 {
			assert.True(t, out.Finished)
		}
	}
	assert.Equal(t, []int{2, 5, 8}, intermissions)
	assert.False(t, q.Complete())

	q.Leave(ben.ID)
	assert.True(t, q.Complete())
}

func TestQuizGame_ComboScoring(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := makeQuestions(5)
	q := NewQuizGame(makeLobby(game.ModeQuizDuel, ann, ben), questions, 10*time.Second, now)

	out, err := q.Answer(ann.ID, 0, questions[0].CorrectAnswer, now)
	require.NoError(t, err)
	assert.Equal(t, 1500, out.Points)
	assert.Equal(t, 1, out.Combo)

	out, err = q.Answer(ann.ID, 1, questions[1].CorrectAnswer, now)
	require.NoError(t, err)
	assert.Equal(t, 1550, out.Points)

	out, err = q.Answer(ann.ID, 2, questions[2].CorrectAnswer, now.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1000+100+250, out.Points)
	assert.Equal(t, 3, out.Combo)

	wrong := (questions[3].CorrectAnswer + 1) % 3
	out, err = q.Answer(ann.ID, 3, wrong, now.Add(5*time.Second))
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Equal(t, 0, out.Points)
	assert.Equal(t, 0, out.Combo)
	assert.Equal(t, 1500+1550+1350, out.Score)
}

func TestQuizGame_DuelNeverIntermits(t *testing.T) {
	now := time.Now()
	questions := makeQuestions(10)
	q := NewQuizGame(makeLobby(game.ModeQuizDuel, ann, ben), questions, 10*time.Second, now)

	for i := 0; i < 10; i++ {
		out, err := q.Answer(ann.ID, i, 0, now)
		require.NoError(t, err)
		assert.False(t, out.Intermission)
	}
	assert.True(t, q.Slot(ann.ID).Finished)
	assert.False(t, q.Complete())

	for i := 0; i < 10; i++ {
		_, err := q.Answer(ben.ID, i, 0, now)
		require.NoError(t, err)
	}
	assert.True(t, q.Complete())
}

func TestQuizGame_LateAnswerIsTimeout(t *testing.T) {
	now := time.Now()
	questions := makeQuestions(3)
	q := NewQuizGame(makeLobby(game.ModeQuizDuel, ann, ben), questions, 10*time.Second, now)

	out, err := q.Answer(ann.ID, 0, questions[0].CorrectAnswer, now.Add(11*time.Second))
	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	assert.False(t, out.Correct)
	assert.Equal(t, 0, out.Points)
}

func TestQuizGame_ExpireIgnoresStaleDeadline(t *testing.T) {
	now := time.Now()
	questions := makeQuestions(3)
	q := NewQuizGame(makeLobby(game.ModeQuizDuel, ann, ben), questions, 10*time.Second, now)

	_, err := q.Answer(ann.ID, 0, 0, now)
	require.NoError(t, err)

	_, ok := q.Expire(ann.ID, 0, now.Add(10*time.Second))
	assert.False(t, ok)

	out, ok := q.Expire(ann.ID, 1, now.Add(10*time.Second))
	require.True(t, ok)
	assert.True(t, out.TimedOut)
	assert.Equal(t, 1, q.Slot(ann.ID).LastCompletedIndex)
}

func TestQuizGame_RejectsBadSubmissions(t *testing.T) {
	now := time.Now()
	q := NewQuizGame(makeLobby(game.ModeQuizGroup, ann), makeQuestions(3), 10*time.Second, now)

	_, err := q.Answer(cat.ID, 0, 0, now)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, err = q.Answer(ann.ID, 1, 0, now)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))

	_, err = q.Answer(ann.ID, 0, 7, now)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	require.True(t, q.Leave(ann.ID))
	_, err = q.Answer(ann.ID, 0, 0, now)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.False(t, q.Leave(ann.ID))
}

func TestQuizGame_GroupCompletionIgnoresBots(t *testing.T) {
	now := time.Now()
	l := makeLobby(game.ModeQuizGroup, ann)
	l.Players["bot-1"] = game.NewBotSlot("bot-1", "Bot", 1000)
	q := NewQuizGame(l, makeQuestions(1), 10*time.Second, now)

	_, err := q.Answer(ann.ID, 0, 0, now)
	require.NoError(t, err)
	assert.True(t, q.Complete())
	assert.False(t, q.Slot("bot-1").Finished)
}

func TestQuizGame_BotsSkipIntermissions(t *testing.T) {
	now := time.Now()
	l := makeLobby(game.ModeQuizGroup, ann)
	l.Players["bot-1"] = game.NewBotSlot("bot-1", "Bot", 1000)
	q := NewQuizGame(l, makeQuestions(10), 10*time.Second, now)

	for i := 0; i < 3; i++ {
		out, err := q.Answer("bot-1", i, 0, now)
		require.NoError(t, err)
		assert.False(t, out.Intermission)
	}
	idx, _, _ := q.Current("bot-1")
	assert.Equal(t, 3, idx)
}
