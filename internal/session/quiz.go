package session

import (
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

type quizRunner struct {
	index        int
	combo        int
	intermission bool
	startedAt    time.Time
}

// QuizGame is the quiz state machine of one lobby. Every player advances
// through the same question sequence at their own pace. It is not safe for
// concurrent use; the session actor owns it.
type QuizGame struct {
	mode        game.Mode
	questions   []game.Question
	limit       time.Duration
	checkpoints []int
	slots       map[string]*game.PlayerSlot
	runners     map[string]*quizRunner
}

type AnswerOutcome struct {
	PlayerID      string `json:"playerId"`
	Index         int    `json:"index"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	CorrectAnswer int    `json:"correctAnswer"`
	Points        int    `json:"points"`
	Score         int    `json:"score"`
	Combo         int    `json:"combo"`
	Finished      bool   `json:"finished"`
	Intermission  bool   `json:"intermission"`
}

func NewQuizGame(l *game.Lobby, questions []game.Question, limit time.Duration, now time.Time) *QuizGame {
	q := &QuizGame{
		mode:      l.Mode,
		questions: questions,
		limit:     limit,
		slots:     make(map[string]*game.PlayerSlot, len(l.Players)),
		runners:   make(map[string]*quizRunner, len(l.Players)),
	}
	if l.Mode == game.ModeQuizGroup {
		q.checkpoints = game.Checkpoints(len(questions))
	}
	for id, slot := range l.Players {
		copied := *slot
		q.slots[id] = &copied
		q.runners[id] = &quizRunner{index: slot.LastCompletedIndex + 1, startedAt: now}
	}
	return q
}

func (q *QuizGame) Len() int {
	return len(q.questions)
}

func (q *QuizGame) Question(index int) (game.Question, bool) {
	if index < 0 || index >= len(q.questions) {
		return game.Question{}, false
	}
	return q.questions[index], true
}

// Current returns the question index the player is on and when it started.
func (q *QuizGame) Current(playerID string) (int, time.Time, bool) {
	r, ok := q.runners[playerID]
	if !ok {
		return 0, time.Time{}, false
	}
	return r.index, r.startedAt, true
}

func (q *QuizGame) Slot(playerID string) game.PlayerSlot {
	return *q.slots[playerID]
}

func (q *QuizGame) Slots() []game.PlayerSlot {
	out := make([]game.PlayerSlot, 0, len(q.slots))
	for _, s := range q.slots {
		out = append(out, *s)
	}
	return out
}

func (q *QuizGame) Standings() []game.Standing {
	return game.Rank(q.Slots())
}

// Answer scores the player's choice for question index. The elapsed time is
// measured from when the server presented that question to the player.
func (q *QuizGame) Answer(playerID string, index, choice int, now time.Time) (AnswerOutcome, error) {
	slot, r, err := q.active(playerID, index)
	if err != nil {
		return AnswerOutcome{}, err
	}
	question := q.questions[index]
	if choice < 0 || choice >= len(question.Options) {
		return AnswerOutcome{}, apperrors.NewAppError(400, "choice out of range", nil)
	}

	remaining := q.limit - now.Sub(r.startedAt)
	timedOut := remaining <= 0
	correct := !timedOut && choice == question.CorrectAnswer
	return q.complete(slot, r, index, correct, timedOut, remaining, now), nil
}

// Expire records a miss when the player's time on question index ran out.
// It reports false for a stale deadline the player already moved past.
func (q *QuizGame) Expire(playerID string, index int, now time.Time) (AnswerOutcome, bool) {
	slot, r, err := q.active(playerID, index)
	if err != nil {
		return AnswerOutcome{}, false
	}
	return q.complete(slot, r, index, false, true, 0, now), true
}

func (q *QuizGame) active(playerID string, index int) (*game.PlayerSlot, *quizRunner, error) {
	slot, ok := q.slots[playerID]
	if !ok {
		return nil, nil, apperrors.Forbidden("player is not in this session")
	}
	r := q.runners[playerID]
	switch {
	case slot.Finished:
		return nil, nil, apperrors.InvalidState("player already finished")
	case r.intermission:
		return nil, nil, apperrors.InvalidState("intermission in progress")
	case index != r.index:
		return nil, nil, apperrors.InvalidState("not the current question")
	}
	return slot, r, nil
}

func (q *QuizGame) complete(slot *game.PlayerSlot, r *quizRunner, index int, correct, timedOut bool, remaining time.Duration, now time.Time) AnswerOutcome {
	points := ScoreAnswer(correct, r.combo, remaining, q.limit)
	if correct {
		r.combo++
	} else {
		r.combo = 0
	}
	slot.Merge(game.PlayerSlot{
		Score:              slot.Score + points,
		LastCompletedIndex: index,
		Finished:           index >= len(q.questions)-1,
	})

	out := AnswerOutcome{
		PlayerID:      slot.PlayerID,
		Index:         index,
		Correct:       correct,
		TimedOut:      timedOut,
		CorrectAnswer: q.questions[index].CorrectAnswer,
		Points:        points,
		Score:         slot.Score,
		Combo:         r.combo,
		Finished:      slot.Finished,
	}
	switch {
	case slot.Finished:
	case !slot.IsBot && game.IsCheckpoint(q.checkpoints, index):
		r.intermission = true
		out.Intermission = true
	default:
		r.index = index + 1
		r.startedAt = now
	}
	return out
}

// Resume ends a player's intermission and presents the next question.
func (q *QuizGame) Resume(playerID string, now time.Time) (int, bool) {
	r, ok := q.runners[playerID]
	if !ok || !r.intermission || q.slots[playerID].Finished {
		return 0, false
	}
	r.intermission = false
	r.index++
	r.startedAt = now
	return r.index, true
}

// Leave marks a departed player finished with the score they have.
func (q *QuizGame) Leave(playerID string) bool {
	slot, ok := q.slots[playerID]
	if !ok || slot.Finished {
		return false
	}
	slot.Finished = true
	q.runners[playerID].intermission = false
	return true
}

// Complete reports whether the match is over: every human finished in group
// play, every slot finished in a duel.
func (q *QuizGame) Complete() bool {
	for _, slot := range q.slots {
		if slot.IsBot && q.mode != game.ModeQuizDuel {
			continue
		}
		if !slot.Finished {
			return false
		}
	}
	return true
}

// NextTopic is the topic label of the question after index, if any.
func (q *QuizGame) NextTopic(index int) string {
	if next, ok := q.Question(index + 1); ok {
		return next.TopicLabel
	}
	return ""
}
