// Package session runs started lobbies. Each running lobby is owned by one
// actor goroutine that serializes answers, guesses, strokes, timers and
// departures, and publishes state to the shared store.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/config"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/metrics"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"go.uber.org/zap"
)

// SlotWriter persists a player's progress into the lobby record.
type SlotWriter interface {
	UpdateSlot(ctx context.Context, lobbyID string, slot game.PlayerSlot) (*game.Lobby, error)
}

type WordSource interface {
	Word(ctx context.Context, used []string) (string, error)
}

type BotAgent interface {
	Delay(opponentRating int) time.Duration
	DecideCorrect(opponentRating int) bool
}

// Resolver settles a finished match: ratings, XP and the lobby's terminal state.
type Resolver interface {
	Resolve(ctx context.Context, result game.MatchResult) error
}

// Timing holds the pauses the actors schedule. Unit is the length of one
// configured second; tests shrink it.
type Timing struct {
	Unit                    time.Duration
	IntermissionLeaderboard time.Duration
	IntermissionCountdown   time.Duration
	RoundEndPause           time.Duration
}

func TimingFromConfig(cfg config.Config) Timing {
	return Timing{
		Unit:                    time.Second,
		IntermissionLeaderboard: cfg.IntermissionLeaderboard,
		IntermissionCountdown:   cfg.IntermissionCountdown,
		RoundEndPause:           cfg.RoundEndPause,
	}
}

type Hub struct {
	store    store.Store
	slots    SlotWriter
	words    WordSource
	agent    BotAgent
	resolver Resolver
	timing   Timing
	metrics  *metrics.Metrics
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	actors map[string]*actor
	now    func() time.Time
	seed   func() int64
}

func NewHub(parent context.Context, st store.Store, slots SlotWriter, words WordSource, agent BotAgent, resolver Resolver, timing Timing, m *metrics.Metrics, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if timing.Unit <= 0 {
		timing.Unit = time.Second
	}
	return &Hub{
		store:    st,
		slots:    slots,
		words:    words,
		agent:    agent,
		resolver: resolver,
		timing:   timing,
		metrics:  m,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		actors:   make(map[string]*actor),
		now:      time.Now,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Run starts the session actor of a lobby that just moved to RUNNING. The
// actor outlives ctx; it ends when the match completes or Stop is called.
func (h *Hub) Run(ctx context.Context, launch lobby.Launch) error {
	l := launch.Lobby
	if l == nil {
		return apperrors.NewAppError(400, "missing lobby", nil)
	}

	var handler sessionHandler
	switch {
	case l.Mode.IsQuiz():
		if len(launch.Questions) == 0 || l.Quiz == nil {
			return apperrors.InvalidState("quiz session needs questions")
		}
		limit := time.Duration(l.Quiz.TimePerQuestion) * h.timing.Unit
		handler = &quizHandler{game: NewQuizGame(l, launch.Questions, limit, h.now())}
	case l.Mode == game.ModeCharades:
		if launch.Charades == nil {
			return apperrors.InvalidState("charades session needs a first round")
		}
		rng := rand.New(rand.NewSource(h.seed()))
		handler = &charadesHandler{game: NewCharadesGame(l, launch.Charades, rng, h.timing.Unit)}
	default:
		return apperrors.NewAppError(400, "unknown mode", nil)
	}

	h.mu.Lock()
	if _, ok := h.actors[l.ID]; ok {
		h.mu.Unlock()
		return apperrors.AlreadyRunning("session already running")
	}
	a := newActor(h, l, handler)
	h.actors[l.ID] = a
	h.mu.Unlock()

	h.metrics.SessionStarted(string(l.Mode))
	h.log.Info("session started", zap.String("lobby_id", l.ID), zap.String("mode", string(l.Mode)))
	go a.loop()
	return nil
}

func (h *Hub) actor(lobbyID string) (*actor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.actors[lobbyID]
	if !ok {
		return nil, apperrors.NotFound("no running session for lobby")
	}
	return a, nil
}

func (h *Hub) remove(a *actor) {
	h.mu.Lock()
	if h.actors[a.lobbyID] == a {
		delete(h.actors, a.lobbyID)
	}
	h.mu.Unlock()
}

// PlayerLeft hands a departure to the running session, if this hub owns one.
func (h *Hub) PlayerLeft(lobbyID, playerID string) bool {
	a, err := h.actor(lobbyID)
	if err != nil {
		return false
	}
	return a.post(leaveMsg{playerID: playerID})
}

// Stop ends a session without resolving it.
func (h *Hub) Stop(lobbyID string) {
	h.mu.Lock()
	a, ok := h.actors[lobbyID]
	delete(h.actors, lobbyID)
	h.mu.Unlock()
	if ok {
		a.stop()
	}
}

func (h *Hub) Running(lobbyID string) bool {
	_, err := h.actor(lobbyID)
	return err == nil
}

func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actors)
}

// Shutdown stops every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	actors := make([]*actor, 0, len(h.actors))
	for id, a := range h.actors {
		actors = append(actors, a)
		delete(h.actors, id)
	}
	h.mu.Unlock()

	for _, a := range actors {
		a.stop()
	}
	h.cancel()
}

func (h *Hub) Answer(ctx context.Context, lobbyID, playerID string, index, choice int) (AnswerOutcome, error) {
	reply, err := request(ctx, h, lobbyID, func(r chan answerReply) actorMsg {
		return answerMsg{playerID: playerID, index: index, choice: choice, reply: r}
	})
	if err != nil {
		return AnswerOutcome{}, err
	}
	return reply.outcome, reply.err
}

func (h *Hub) Guess(ctx context.Context, lobbyID, playerID, text string) (GuessOutcome, error) {
	reply, err := request(ctx, h, lobbyID, func(r chan guessReply) actorMsg {
		return guessMsg{playerID: playerID, text: text, reply: r}
	})
	if err != nil {
		return GuessOutcome{}, err
	}
	return reply.outcome, reply.err
}

func (h *Hub) Stroke(ctx context.Context, lobbyID, playerID string, point game.StrokePoint) error {
	if err := point.Validate(); err != nil {
		return apperrors.NewAppError(400, err.Error(), err)
	}
	reply, err := request(ctx, h, lobbyID, func(r chan error) actorMsg {
		return strokeMsg{playerID: playerID, point: point, reply: r}
	})
	if err != nil {
		return err
	}
	return reply
}

func (h *Hub) ClearCanvas(ctx context.Context, lobbyID, playerID string) error {
	reply, err := request(ctx, h, lobbyID, func(r chan error) actorMsg {
		return clearMsg{playerID: playerID, reply: r}
	})
	if err != nil {
		return err
	}
	return reply
}

// request posts a message carrying a reply channel and waits for the answer.
func request[T any](ctx context.Context, h *Hub, lobbyID string, build func(chan T) actorMsg) (T, error) {
	var zero T
	a, err := h.actor(lobbyID)
	if err != nil {
		return zero, err
	}
	reply := make(chan T, 1)
	if !a.post(build(reply)) {
		return zero, apperrors.NotFound("session ended")
	}
	select {
	case r := <-reply:
		return r, nil
	case <-a.done:
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, apperrors.NotFound("session ended")
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
