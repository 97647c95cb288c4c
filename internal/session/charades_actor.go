package session

import (
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"go.uber.org/zap"
)

type charadesHandler struct {
	game *CharadesGame
}

// CharadesSessionView is the public state of a charades session.
type CharadesSessionView struct {
	LobbyID string `json:"lobbyId"`
	game.CharadesView
	Standings []game.Standing `json:"standings"`
}

func (c *charadesHandler) start(a *actor) {
	a.clearStrokes()
	c.beginRound(a)
}

func (c *charadesHandler) complete() bool {
	return c.game.Finished()
}

func (c *charadesHandler) slot(playerID string) game.PlayerSlot {
	return c.game.Slot(playerID)
}

func (c *charadesHandler) standings() []game.Standing {
	return c.game.Standings()
}

func (c *charadesHandler) view(a *actor) any {
	return CharadesSessionView{
		LobbyID:      a.lobbyID,
		CharadesView: c.game.View(),
		Standings:    c.game.Standings(),
	}
}

func (c *charadesHandler) beginRound(a *actor) {
	state := c.game.State()
	a.send(state.DrawerID, EventSecretWord, SecretWordPayload{Round: state.CurrentRound, Word: state.CurrentWord})
	a.after(c.game.Duration(), roundTimeoutMsg{round: state.CurrentRound})
	if every, ok := c.game.RevealInterval(); ok {
		a.after(every, revealMsg{round: state.CurrentRound})
	}
	a.markView()
}

func (c *charadesHandler) roundEnded(a *actor) {
	a.markView()
	a.after(a.hub.timing.RoundEndPause, advanceMsg{round: c.game.State().CurrentRound})
}

func (c *charadesHandler) finish(a *actor) {
	c.game.Finish()
	for _, s := range c.game.Standings() {
		a.markSlot(s.PlayerID)
	}
}

func (c *charadesHandler) drawing(round int) bool {
	state := c.game.State()
	return state.CurrentRound == round && state.Status == game.CharadesDrawing
}

func (c *charadesHandler) handle(a *actor, msg actorMsg) {
	switch m := msg.(type) {
	case revealMsg:
		if !c.drawing(m.round) {
			return
		}
		_, revealed, ended := c.game.RevealNext()
		if revealed {
			a.markView()
		}
		if ended {
			c.roundEnded(a)
			return
		}
		if every, ok := c.game.RevealInterval(); ok {
			a.after(every, revealMsg{round: m.round})
		}

	case roundTimeoutMsg:
		if c.game.Timeout(m.round) {
			c.roundEnded(a)
		}

	case advanceMsg:
		c.advance(a, m.round)

	case guessMsg:
		c.guess(a, m)

	case strokeMsg:
		err := c.game.CanDraw(m.playerID)
		if err == nil {
			if _, appendErr := a.hub.store.Append(a.ctx, StrokesPath(a.lobbyID), m.point); appendErr != nil {
				a.hub.metrics.SyncFailed("stroke")
				err = apperrors.TransientSyncFailure("stroke not saved", appendErr)
			}
		}
		m.reply <- err

	case clearMsg:
		err := c.game.CanDraw(m.playerID)
		if err == nil {
			if _, delErr := a.hub.store.Delete(a.ctx, StrokesPath(a.lobbyID)); delErr != nil {
				a.hub.metrics.SyncFailed("stroke")
				err = apperrors.TransientSyncFailure("canvas not cleared", delErr)
			}
		}
		m.reply <- err

	case leaveMsg:
		ended := c.game.Leave(m.playerID)
		a.markSlot(m.playerID)
		if ended {
			c.roundEnded(a)
		}

	case answerMsg:
		m.reply <- answerReply{err: apperrors.InvalidState("not a quiz session")}
	}
}

func (c *charadesHandler) guess(a *actor, m guessMsg) {
	drawer := c.game.State().DrawerID
	out, err := c.game.Guess(m.playerID, a.names[m.playerID], m.text, a.hub.now())
	m.reply <- guessReply{outcome: out, err: err}
	if err != nil {
		return
	}

	if _, err := a.hub.store.Append(a.ctx, ChatPath(a.lobbyID), out.Public); err != nil {
		a.hub.metrics.SyncFailed("chat")
		a.log.Warn("error appending chat entry", zap.String("player_id", m.playerID), zap.Error(err))
	}
	if out.Public.Redacted {
		a.send(m.playerID, EventChat, out.Entry)
		if drawer != m.playerID {
			a.send(drawer, EventChat, out.Entry)
		}
	}
	if !out.Correct {
		return
	}

	a.markSlot(m.playerID)
	a.markSlot(drawer)
	a.send(m.playerID, EventGuessResult, out)
	if out.RoundEnded {
		c.roundEnded(a)
	}
}

// advance starts the next round after the round-end pause, or finishes the
// game when no round is left or no fresh word can be drawn.
func (c *charadesHandler) advance(a *actor, round int) {
	state := c.game.State()
	if state.CurrentRound != round || state.Status != game.CharadesRoundEnd {
		return
	}
	if !c.game.HasNextRound() {
		c.finish(a)
		a.markView()
		return
	}
	word, err := a.hub.words.Word(a.ctx, c.game.UsedWords())
	if err != nil {
		a.log.Warn("no word for next round, finishing", zap.Error(err))
		c.finish(a)
		a.markView()
		return
	}
	c.game.Advance(word, a.hub.now())
	a.clearStrokes()
	c.beginRound(a)
}

func (a *actor) clearStrokes() {
	if _, err := a.hub.store.Delete(a.ctx, StrokesPath(a.lobbyID)); err != nil {
		a.hub.metrics.SyncFailed("stroke")
		a.log.Warn("error clearing canvas", zap.Error(err))
	}
}
