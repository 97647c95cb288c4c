package session

import (
	"context"
	"sync"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/game"
	"go.uber.org/zap"
)

type actorMsg interface{ isActorMsg() }

type answerReply struct {
	outcome AnswerOutcome
	err     error
}

type guessReply struct {
	outcome GuessOutcome
	err     error
}

type answerMsg struct {
	playerID string
	index    int
	choice   int
	reply    chan answerReply
}

func (answerMsg) isActorMsg() {}

type expireMsg struct {
	playerID string
	index    int
}

func (expireMsg) isActorMsg() {}

type botMoveMsg struct {
	playerID string
	index    int
}

func (botMoveMsg) isActorMsg() {}

type leaderboardDoneMsg struct {
	playerID string
	index    int
}

func (leaderboardDoneMsg) isActorMsg() {}

type resumeMsg struct{ playerID string }

func (resumeMsg) isActorMsg() {}

type leaveMsg struct{ playerID string }

func (leaveMsg) isActorMsg() {}

type guessMsg struct {
	playerID string
	text     string
	reply    chan guessReply
}

func (guessMsg) isActorMsg() {}

type strokeMsg struct {
	playerID string
	point    game.StrokePoint
	reply    chan error
}

func (strokeMsg) isActorMsg() {}

type clearMsg struct {
	playerID string
	reply    chan error
}

func (clearMsg) isActorMsg() {}

type revealMsg struct{ round int }

func (revealMsg) isActorMsg() {}

type roundTimeoutMsg struct{ round int }

func (roundTimeoutMsg) isActorMsg() {}

type advanceMsg struct{ round int }

func (advanceMsg) isActorMsg() {}

// firedMsg wraps a scheduled message so the loop can forget its timer.
type firedMsg struct {
	timer uint64
	msg   actorMsg
}

func (firedMsg) isActorMsg() {}

// sessionHandler is the mode-specific half of an actor. All calls happen on
// the actor goroutine.
type sessionHandler interface {
	start(a *actor)
	handle(a *actor, msg actorMsg)
	complete() bool
	slot(playerID string) game.PlayerSlot
	standings() []game.Standing
	view(a *actor) any
}

type actor struct {
	hub     *Hub
	ctx     context.Context
	lobbyID string
	mode    game.Mode
	names   map[string]string
	bots    map[string]int
	handler sessionHandler
	log     *zap.Logger

	inbox    chan actorMsg
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	timers    map[uint64]*time.Timer
	nextTimer uint64
	dirty     map[string]bool
	viewDirty bool
}

func newActor(h *Hub, l *game.Lobby, handler sessionHandler) *actor {
	a := &actor{
		hub:     h,
		ctx:     h.ctx,
		lobbyID: l.ID,
		mode:    l.Mode,
		names:   make(map[string]string, len(l.Players)),
		bots:    map[string]int{},
		handler: handler,
		log:     h.log.With(zap.String("lobby_id", l.ID)),
		inbox:   make(chan actorMsg, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		dirty:   map[string]bool{},
		timers:  map[uint64]*time.Timer{},
	}
	for id, slot := range l.Players {
		a.names[id] = slot.DisplayName
		if slot.IsBot {
			rating := 0
			if slot.BotRating != nil {
				rating = *slot.BotRating
			}
			a.bots[id] = rating
		}
	}
	return a
}

func (a *actor) loop() {
	defer a.exit()

	a.handler.start(a)
	a.sync()
	if a.handler.complete() {
		a.resolve()
		return
	}
	for {
		select {
		case <-a.quit:
			return
		case <-a.ctx.Done():
			return
		case m := <-a.inbox:
			if f, ok := m.(firedMsg); ok {
				delete(a.timers, f.timer)
				m = f.msg
			}
			a.handler.handle(a, m)
			a.sync()
			if a.handler.complete() {
				a.resolve()
				return
			}
		}
	}
}

func (a *actor) exit() {
	for _, t := range a.timers {
		t.Stop()
	}
	a.hub.remove(a)
	close(a.done)
	a.hub.metrics.SessionEnded(string(a.mode))
	a.log.Info("session ended")
}

// post delivers a message unless the actor is gone.
func (a *actor) post(m actorMsg) bool {
	select {
	case a.inbox <- m:
		return true
	case <-a.quit:
		return false
	case <-a.done:
		return false
	}
}

func (a *actor) stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// after delivers msg to the actor once d has passed. Only pending timers are
// kept; a fired one is dropped when its message is handled.
func (a *actor) after(d time.Duration, msg actorMsg) {
	a.nextTimer++
	id := a.nextTimer
	a.timers[id] = time.AfterFunc(d, func() { a.post(firedMsg{timer: id, msg: msg}) })
}

// scaled converts a wall-clock duration into session time.
func (a *actor) scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) * float64(a.hub.timing.Unit) / float64(time.Second))
}

func (a *actor) isBot(playerID string) bool {
	_, ok := a.bots[playerID]
	return ok
}

func (a *actor) markSlot(playerID string) {
	a.dirty[playerID] = true
	a.viewDirty = true
}

func (a *actor) markView() {
	a.viewDirty = true
}

// sync writes changed slots and the public view. Failed writes stay dirty and
// are retried after the next message.
func (a *actor) sync() {
	for id := range a.dirty {
		if _, err := a.hub.slots.UpdateSlot(a.ctx, a.lobbyID, a.handler.slot(id)); err != nil {
			a.hub.metrics.SyncFailed("slot")
			a.log.Warn("error syncing player slot", zap.String("player_id", id), zap.Error(err))
			continue
		}
		delete(a.dirty, id)
	}
	if !a.viewDirty {
		return
	}
	if err := a.hub.store.Set(a.ctx, SessionPath(a.lobbyID), a.handler.view(a)); err != nil {
		a.hub.metrics.SyncFailed("view")
		a.log.Warn("error publishing session view", zap.Error(err))
		return
	}
	a.viewDirty = false
}

// send writes a private event for one player. Bots have no inbox.
func (a *actor) send(playerID, eventType string, payload any) {
	if a.isBot(playerID) {
		return
	}
	event := PlayerEvent{Type: eventType, LobbyID: a.lobbyID, Payload: payload, At: a.hub.now()}
	if err := a.hub.store.Set(a.ctx, EventsPath(playerID), event); err != nil {
		a.hub.metrics.SyncFailed("event")
		a.log.Warn("error sending player event",
			zap.String("player_id", playerID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func (a *actor) resolve() {
	result := game.MatchResult{LobbyID: a.lobbyID, Mode: a.mode, Standings: a.handler.standings()}
	for id := range a.names {
		a.send(id, EventMatchComplete, result)
	}
	if err := a.hub.resolver.Resolve(a.ctx, result); err != nil {
		a.log.Error("error resolving match", zap.Error(err))
		return
	}
	a.log.Info("match resolved", zap.Int("players", len(result.Standings)))
}
