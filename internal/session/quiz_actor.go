package session

import (
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

type quizHandler struct {
	game *QuizGame
}

func (q *quizHandler) start(a *actor) {
	for _, slot := range q.game.Slots() {
		if !slot.Finished {
			q.present(a, slot.PlayerID)
		}
	}
	a.markView()
}

func (q *quizHandler) complete() bool {
	return q.game.Complete()
}

func (q *quizHandler) slot(playerID string) game.PlayerSlot {
	return q.game.Slot(playerID)
}

func (q *quizHandler) standings() []game.Standing {
	return q.game.Standings()
}

func (q *quizHandler) view(a *actor) any {
	return QuizView{
		LobbyID:         a.lobbyID,
		Mode:            a.mode,
		Finished:        q.game.Complete(),
		TotalQuestions:  q.game.Len(),
		TimePerQuestion: int(q.game.limit / a.hub.timing.Unit),
		Standings:       q.game.Standings(),
	}
}

func (q *quizHandler) handle(a *actor, msg actorMsg) {
	switch m := msg.(type) {
	case answerMsg:
		if a.isBot(m.playerID) {
			m.reply <- answerReply{err: apperrors.Forbidden("bots answer on their own")}
			return
		}
		out, err := q.game.Answer(m.playerID, m.index, m.choice, a.hub.now())
		m.reply <- answerReply{outcome: out, err: err}
		if err == nil {
			q.answered(a, out)
		}

	case expireMsg:
		if out, ok := q.game.Expire(m.playerID, m.index, a.hub.now()); ok {
			q.answered(a, out)
		}

	case botMoveMsg:
		q.botMove(a, m)

	case leaderboardDoneMsg:
		a.send(m.playerID, EventIntermissionCountdown, CountdownPayload{
			Seconds:   int(a.hub.timing.IntermissionCountdown.Seconds()),
			NextTopic: q.game.NextTopic(m.index),
		})
		a.after(a.hub.timing.IntermissionCountdown, resumeMsg{playerID: m.playerID})

	case resumeMsg:
		if _, ok := q.game.Resume(m.playerID, a.hub.now()); ok {
			q.present(a, m.playerID)
		}

	case leaveMsg:
		if q.game.Leave(m.playerID) {
			a.markSlot(m.playerID)
		}

	case guessMsg:
		m.reply <- guessReply{err: apperrors.InvalidState("not a charades session")}
	case strokeMsg:
		m.reply <- apperrors.InvalidState("not a charades session")
	case clearMsg:
		m.reply <- apperrors.InvalidState("not a charades session")
	}
}

// present shows the player their current question and arms its deadline. A
// bot instead schedules its own answer.
func (q *quizHandler) present(a *actor, playerID string) {
	index, startedAt, ok := q.game.Current(playerID)
	if !ok {
		return
	}
	question, ok := q.game.Question(index)
	if !ok {
		return
	}
	if rating, bot := a.bots[playerID]; bot {
		a.after(a.scaled(a.hub.agent.Delay(rating)), botMoveMsg{playerID: playerID, index: index})
		return
	}
	a.send(playerID, EventQuestion, QuestionPayload{
		Index:     index,
		Total:     q.game.Len(),
		Question:  question.Public(),
		Deadline:  startedAt.Add(q.game.limit),
		TimeLimit: int(q.game.limit / a.hub.timing.Unit),
	})
	a.after(q.game.limit, expireMsg{playerID: playerID, index: index})
}

func (q *quizHandler) botMove(a *actor, m botMoveMsg) {
	index, _, ok := q.game.Current(m.playerID)
	if !ok || index != m.index {
		return
	}
	question, _ := q.game.Question(index)
	choice := question.CorrectAnswer
	if !a.hub.agent.DecideCorrect(a.bots[m.playerID]) {
		choice = (question.CorrectAnswer + 1) % len(question.Options)
	}
	out, err := q.game.Answer(m.playerID, index, choice, a.hub.now())
	if err != nil {
		return
	}
	q.answered(a, out)
}

func (q *quizHandler) answered(a *actor, out AnswerOutcome) {
	a.markSlot(out.PlayerID)
	a.send(out.PlayerID, EventAnswerResult, out)

	switch {
	case out.Finished:
		a.send(out.PlayerID, EventPlayerFinished, FinishedPayload{
			Score: out.Score,
			Rank:  game.RankOf(q.game.Standings(), out.PlayerID),
		})
	case out.Intermission:
		standings := q.game.Standings()
		a.send(out.PlayerID, EventIntermissionLeaderboard, LeaderboardPayload{
			Checkpoint: out.Index,
			Standings:  standings,
			Rank:       game.RankOf(standings, out.PlayerID),
		})
		a.after(a.hub.timing.IntermissionLeaderboard, leaderboardDoneMsg{playerID: out.PlayerID, index: out.Index})
	default:
		q.present(a, out.PlayerID)
	}
}
