package lobby

import (
	"context"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/game"
	"go.uber.org/zap"
)

// Reap finishes lobbies that never started within the TTL, finishes running
// lobbies whose session died with its process, and removes finished lobbies
// whose delayed deletion was lost, e.g. across a restart.
func (s *LobbyService) Reap(ctx context.Context) int {
	lobbies, err := s.repo.ListLobbies(ctx)
	if err != nil {
		s.log.Warn("error listing lobbies for reaping", zap.Error(err))
		return 0
	}

	now := s.now()
	reaped := 0
	for _, l := range lobbies {
		switch {
		case l.Status.Joinable() && now.Sub(l.CreatedAt) > s.cfg.LobbyTTL:
			if err := s.Finish(ctx, l.ID); err != nil {
				s.log.Warn("error reaping lobby", zap.String("lobby_id", l.ID), zap.Error(err))
				continue
			}
			reaped++
		case s.orphaned(l, now):
			if err := s.Finish(ctx, l.ID); err != nil {
				s.log.Warn("error reaping orphaned session", zap.String("lobby_id", l.ID), zap.Error(err))
				continue
			}
			s.log.Warn("finished lobby with no live session", zap.String("lobby_id", l.ID))
			reaped++
		case l.Status == game.StatusFinished && l.FinishedAt != nil && now.Sub(*l.FinishedAt) > s.cfg.LobbyTTL:
			if err := s.repo.DeleteLobby(ctx, l); err != nil {
				s.log.Warn("error deleting stale lobby", zap.String("lobby_id", l.ID), zap.Error(err))
				continue
			}
			reaped++
		}
	}
	if reaped > 0 {
		s.log.Info("reaped abandoned lobbies", zap.Int("count", reaped))
	}
	return reaped
}

// orphaned reports a RUNNING lobby that no instance can still be playing: it
// has outlived its longest possible session by the TTL and no local actor
// owns it.
func (s *LobbyService) orphaned(l *game.Lobby, now time.Time) bool {
	if l.Status != game.StatusRunning || l.StartedAt == nil {
		return false
	}
	if now.Sub(*l.StartedAt) <= s.maxSessionLength(l)+s.cfg.LobbyTTL {
		return false
	}
	return s.sessions == nil || !s.sessions.Running(l.ID)
}

// maxSessionLength bounds how long a session can run: every question or
// round has a deadline, and the pauses between them are fixed.
func (s *LobbyService) maxSessionLength(l *game.Lobby) time.Duration {
	switch {
	case l.Quiz != nil:
		perQuestion := time.Duration(l.Quiz.TimePerQuestion) * time.Second
		pause := s.cfg.IntermissionLeaderboard + s.cfg.IntermissionCountdown
		return time.Duration(len(l.Quiz.Questions))*perQuestion + time.Duration(len(l.Quiz.Checkpoints))*pause
	case l.Charades != nil:
		perRound := time.Duration(l.Charades.DurationSeconds)*time.Second + s.cfg.RoundEndPause
		return time.Duration(l.Charades.TotalRounds) * perRound
	}
	return 0
}

// RunReaper calls Reap every interval until ctx is done.
func (s *LobbyService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(ctx)
		}
	}
}
