// Package matchmaking pairs players for 1v1 duels. A single arbiter
// goroutine serialises every queue operation in this process, and claims on
// a waiting entry go through store.Delete so only one caller, on any
// instance, can take a given opponent.
package matchmaking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/metrics"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"go.uber.org/zap"
)

const queueRoot = "matchmaking/queue"

func EntryPath(playerID string) string {
	return store.Join(queueRoot, playerID)
}

// MatchPath is where a waiting player is told they were paired.
func MatchPath(playerID string) string {
	return store.Join("players", playerID, "match")
}

type QueueEntry struct {
	PlayerID      string    `json:"playerId"`
	DisplayName   string    `json:"displayName"`
	AvatarRef     string    `json:"avatarRef"`
	Rating        int       `json:"rating"`
	ParkedLobbyID string    `json:"parkedLobbyId"`
	ConnID        string    `json:"connId,omitempty"`
	JoinedAt      time.Time `json:"joinedAt"`
}

func (e QueueEntry) Player() game.Player {
	return game.Player{ID: e.PlayerID, DisplayName: e.DisplayName, AvatarRef: e.AvatarRef}
}

// public is the entry as shown to the other player; connection ids stay
// server side.
func (e QueueEntry) public() *QueueEntry {
	e.ConnID = ""
	return &e
}

type Request struct {
	Player game.Player
	Rating int
	// ConnID is the connection whose loss removes the entry.
	ConnID string
}

type Result struct {
	Matched  bool        `json:"matched"`
	Opponent *QueueEntry `json:"opponent,omitempty"`
	LobbyID  string      `json:"lobbyId"`
	// Error is set on a match notice when the player was dropped from the queue.
	Error string `json:"error,omitempty"`
}

type LobbyStarter interface {
	CreateDuel(ctx context.Context, host game.Player) (*game.Lobby, error)
	StartDuel(ctx context.Context, lobbyID string, opponent game.Player) (*game.Lobby, error)
	StartDuelWithBot(ctx context.Context, lobbyID string, botRating int) (*game.Lobby, error)
	Finish(ctx context.Context, lobbyID string) error
}

type queueMsg interface{ isQueueMsg() }

type reply struct {
	result Result
	err    error
}

type enqueueMsg struct {
	ctx   context.Context
	req   Request
	reply chan reply
}

type dequeueMsg struct {
	ctx      context.Context
	playerID string
	reply    chan reply
}

type fallbackMsg struct {
	ctx      context.Context
	playerID string
	reply    chan reply
}

func (enqueueMsg) isQueueMsg()  {}
func (dequeueMsg) isQueueMsg()  {}
func (fallbackMsg) isQueueMsg() {}

type Queue struct {
	store   store.Store
	lobbies LobbyStarter
	metrics *metrics.Metrics
	log     *zap.Logger
	inbox   chan queueMsg
	now     func() time.Time
}

func NewQueue(st store.Store, lobbies LobbyStarter, m *metrics.Metrics, log *zap.Logger) *Queue {
	return &Queue{
		store:   st,
		lobbies: lobbies,
		metrics: m,
		log:     log,
		inbox:   make(chan queueMsg, 64),
		now:     time.Now,
	}
}

// Run is the arbiter loop; it returns when ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-q.inbox:
			switch msg := m.(type) {
			case enqueueMsg:
				res, err := q.enqueue(msg.ctx, msg.req)
				msg.reply <- reply{result: res, err: err}
			case dequeueMsg:
				err := q.dequeue(msg.ctx, msg.playerID)
				msg.reply <- reply{err: err}
			case fallbackMsg:
				res, err := q.fallbackToBot(msg.ctx, msg.playerID)
				msg.reply <- reply{result: res, err: err}
			}
			q.reportSize(ctx)
		}
	}
}

func (q *Queue) call(ctx context.Context, m queueMsg, replies chan reply) (Result, error) {
	select {
	case q.inbox <- m:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case r := <-replies:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Enqueue pairs the caller with the first other waiting player, or parks
// them with a freshly created duel lobby.
func (q *Queue) Enqueue(ctx context.Context, req Request) (Result, error) {
	replies := make(chan reply, 1)
	return q.call(ctx, enqueueMsg{ctx: ctx, req: req, reply: replies}, replies)
}

// Dequeue removes the caller's entry and tears down their parked lobby. It is
// a no-op when the caller is not waiting.
func (q *Queue) Dequeue(ctx context.Context, playerID string) error {
	replies := make(chan reply, 1)
	_, err := q.call(ctx, dequeueMsg{ctx: ctx, playerID: playerID, reply: replies}, replies)
	return err
}

// FallbackToBot stops waiting for a human and starts the parked duel
// against a bot at the caller's own rating.
func (q *Queue) FallbackToBot(ctx context.Context, playerID string) (Result, error) {
	replies := make(chan reply, 1)
	return q.call(ctx, fallbackMsg{ctx: ctx, playerID: playerID, reply: replies}, replies)
}

func (q *Queue) enqueue(ctx context.Context, req Request) (Result, error) {
	if req.Player.ID == "" {
		return Result{}, apperrors.NewAppError(400, "player id is required", nil)
	}

	var existing QueueEntry
	found, err := q.store.Get(ctx, EntryPath(req.Player.ID), &existing)
	if err != nil {
		return Result{}, apperrors.TransientSyncFailure("error reading queue", err)
	}
	if found {
		return Result{LobbyID: existing.ParkedLobbyID}, nil
	}

	waiting, err := q.store.Children(ctx, queueRoot)
	if err != nil {
		return Result{}, apperrors.TransientSyncFailure("error reading queue", err)
	}
	for _, child := range waiting {
		if child.Key == req.Player.ID {
			continue
		}
		res, ok, err := q.tryPair(ctx, child, req)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return res, nil
		}
	}
	return q.park(ctx, req)
}

// tryPair claims one waiting entry and starts its parked lobby with the
// caller in it. An entry whose lobby vanished or already started is dropped
// and skipped; any other failure puts the entry back and is returned.
func (q *Queue) tryPair(ctx context.Context, child store.Child, req Request) (Result, bool, error) {
	var entry QueueEntry
	if err := json.Unmarshal(child.Value, &entry); err != nil {
		q.log.Warn("dropping unreadable queue entry", zap.String("player_id", child.Key), zap.Error(err))
		_, _ = q.store.Delete(ctx, EntryPath(child.Key))
		return Result{}, false, nil
	}

	claimed, err := q.store.Delete(ctx, EntryPath(entry.PlayerID))
	if err != nil || !claimed {
		return Result{}, false, nil
	}
	q.release(ctx, entry)

	l, err := q.lobbies.StartDuel(ctx, entry.ParkedLobbyID, req.Player)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) || apperrors.Is(err, apperrors.KindAlreadyRunning) {
			q.log.Warn("parked lobby is gone, skipping opponent",
				zap.String("lobby_id", entry.ParkedLobbyID),
				zap.String("player_id", entry.PlayerID),
				zap.Error(err),
			)
			if finishErr := q.lobbies.Finish(ctx, entry.ParkedLobbyID); finishErr != nil && !apperrors.Is(finishErr, apperrors.KindNotFound) {
				q.log.Warn("error finishing parked lobby", zap.String("lobby_id", entry.ParkedLobbyID), zap.Error(finishErr))
			}
			return Result{}, false, nil
		}
		q.requeue(ctx, entry)
		return Result{}, false, err
	}

	caller := QueueEntry{
		PlayerID:    req.Player.ID,
		DisplayName: req.Player.DisplayName,
		AvatarRef:   req.Player.AvatarRef,
		Rating:      req.Rating,
		JoinedAt:    q.now(),
	}
	notice := Result{Matched: true, Opponent: caller.public(), LobbyID: l.ID}
	if err := q.store.Set(ctx, MatchPath(entry.PlayerID), notice); err != nil {
		q.log.Warn("error notifying matched player", zap.String("player_id", entry.PlayerID), zap.Error(err))
	}

	q.metrics.Paired("human")
	q.log.Info("duel paired",
		zap.String("lobby_id", l.ID),
		zap.String("player_id", req.Player.ID),
		zap.String("opponent_id", entry.PlayerID),
	)
	return Result{Matched: true, Opponent: entry.public(), LobbyID: l.ID}, true, nil
}

// requeue restores a claimed entry after its pairing failed. If it cannot be
// restored the waiting player is told through their match notice instead of
// being dropped silently.
func (q *Queue) requeue(ctx context.Context, entry QueueEntry) {
	err := q.store.Set(ctx, EntryPath(entry.PlayerID), entry)
	if err == nil && entry.ConnID != "" {
		err = q.store.OnDisconnect(ctx, entry.ConnID, EntryPath(entry.PlayerID))
		if err == nil {
			err = q.store.OnDisconnect(ctx, entry.ConnID, lobby.LobbyPath(entry.ParkedLobbyID))
		}
	}
	if err == nil {
		q.log.Info("pairing failed, opponent returned to queue", zap.String("player_id", entry.PlayerID))
		return
	}

	q.metrics.SyncFailed("queue")
	q.log.Warn("error returning player to queue", zap.String("player_id", entry.PlayerID), zap.Error(err))
	_, _ = q.store.Delete(ctx, EntryPath(entry.PlayerID))
	q.release(ctx, entry)
	if finishErr := q.lobbies.Finish(ctx, entry.ParkedLobbyID); finishErr != nil && !apperrors.Is(finishErr, apperrors.KindNotFound) {
		q.log.Warn("error finishing parked lobby", zap.String("lobby_id", entry.ParkedLobbyID), zap.Error(finishErr))
	}
	notice := Result{LobbyID: entry.ParkedLobbyID, Error: "matchmaking failed, please queue again"}
	if err := q.store.Set(ctx, MatchPath(entry.PlayerID), notice); err != nil {
		q.log.Warn("error notifying dropped player", zap.String("player_id", entry.PlayerID), zap.Error(err))
	}
}

func (q *Queue) park(ctx context.Context, req Request) (Result, error) {
	l, err := q.lobbies.CreateDuel(ctx, req.Player)
	if err != nil {
		return Result{}, err
	}

	entry := QueueEntry{
		PlayerID:      req.Player.ID,
		DisplayName:   req.Player.DisplayName,
		AvatarRef:     req.Player.AvatarRef,
		Rating:        req.Rating,
		ParkedLobbyID: l.ID,
		ConnID:        req.ConnID,
		JoinedAt:      q.now(),
	}
	if err := q.store.Set(ctx, EntryPath(entry.PlayerID), entry); err != nil {
		_ = q.lobbies.Finish(ctx, l.ID)
		return Result{}, apperrors.TransientSyncFailure("error joining queue", err)
	}

	if req.ConnID != "" {
		err := q.store.OnDisconnect(ctx, req.ConnID, EntryPath(entry.PlayerID))
		if err == nil {
			err = q.store.OnDisconnect(ctx, req.ConnID, lobby.LobbyPath(l.ID))
		}
		if err != nil {
			_, _ = q.store.Delete(ctx, EntryPath(entry.PlayerID))
			q.release(ctx, entry)
			_ = q.lobbies.Finish(ctx, l.ID)
			return Result{}, apperrors.TransientSyncFailure("error joining queue", err)
		}
	}

	q.log.Info("player parked in queue", zap.String("player_id", entry.PlayerID), zap.String("lobby_id", l.ID))
	return Result{LobbyID: l.ID}, nil
}

func (q *Queue) dequeue(ctx context.Context, playerID string) error {
	var entry QueueEntry
	found, err := q.store.Get(ctx, EntryPath(playerID), &entry)
	if err != nil {
		return apperrors.TransientSyncFailure("error reading queue", err)
	}
	if !found {
		return nil
	}
	claimed, err := q.store.Delete(ctx, EntryPath(playerID))
	if err != nil {
		return apperrors.TransientSyncFailure("error leaving queue", err)
	}
	if !claimed {
		return nil
	}
	q.release(ctx, entry)
	if err := q.lobbies.Finish(ctx, entry.ParkedLobbyID); err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
		q.log.Warn("error finishing parked lobby", zap.String("lobby_id", entry.ParkedLobbyID), zap.Error(err))
	}
	q.log.Info("player left queue", zap.String("player_id", playerID))
	return nil
}

func (q *Queue) fallbackToBot(ctx context.Context, playerID string) (Result, error) {
	var entry QueueEntry
	found, err := q.store.Get(ctx, EntryPath(playerID), &entry)
	if err != nil {
		return Result{}, apperrors.TransientSyncFailure("error reading queue", err)
	}
	if !found {
		return Result{}, apperrors.InvalidState("player is not waiting for a duel")
	}
	claimed, err := q.store.Delete(ctx, EntryPath(playerID))
	if err != nil {
		return Result{}, apperrors.TransientSyncFailure("error leaving queue", err)
	}
	if !claimed {
		return Result{}, apperrors.InvalidState("player was already matched")
	}
	q.release(ctx, entry)

	l, err := q.lobbies.StartDuelWithBot(ctx, entry.ParkedLobbyID, entry.Rating)
	if err != nil {
		_ = q.lobbies.Finish(ctx, entry.ParkedLobbyID)
		return Result{}, err
	}
	q.metrics.Paired("bot")
	q.log.Info("duel started against bot", zap.String("lobby_id", l.ID), zap.String("player_id", playerID))
	return Result{Matched: true, LobbyID: l.ID}, nil
}

// release drops the disconnect hooks of an entry that left the queue; the
// parked lobby must survive its owner's socket from now on.
func (q *Queue) release(ctx context.Context, entry QueueEntry) {
	if entry.ConnID == "" {
		return
	}
	for _, path := range []string{EntryPath(entry.PlayerID), lobby.LobbyPath(entry.ParkedLobbyID)} {
		if err := q.store.CancelOnDisconnect(ctx, entry.ConnID, path); err != nil {
			q.metrics.SyncFailed("disconnect")
			q.log.Warn("error cancelling disconnect cleanup",
				zap.String("player_id", entry.PlayerID),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

func (q *Queue) reportSize(ctx context.Context) {
	if q.metrics == nil {
		return
	}
	waiting, err := q.store.Children(ctx, queueRoot)
	if err != nil {
		return
	}
	q.metrics.Waiting(len(waiting))
}
