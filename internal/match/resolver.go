// Package match settles finished sessions: duel ratings, profile XP and the
// lobby's terminal state.
package match

import (
	"context"
	"errors"

	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/metrics"
	"github.com/thesrcielos/QuizBattle/internal/rating"
	"go.uber.org/zap"
)

const (
	xpPerPoints  = 100
	duelWinBonus = 20
)

type RatingRecorder interface {
	GetRating(ctx context.Context, playerID string) (*rating.PlayerRating, error)
	RecordMatch(ctx context.Context, playerID string, opponentRating int, won bool, multiplier float64) (*rating.MatchOutcome, error)
}

// Profiles is the player-profile collaborator: boosts in, XP and rating out.
type Profiles interface {
	ActiveMultiplier(ctx context.Context, playerID string) (float64, error)
	AddXP(ctx context.Context, playerID string, delta int) error
	SetRating(ctx context.Context, playerID string, rating int) error
}

type LobbyFinisher interface {
	Finish(ctx context.Context, lobbyID string) error
}

type Resolver struct {
	ratings  RatingRecorder
	profiles Profiles
	lobbies  LobbyFinisher
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewResolver(ratings RatingRecorder, profiles Profiles, lobbies LobbyFinisher, m *metrics.Metrics, log *zap.Logger) *Resolver {
	return &Resolver{ratings: ratings, profiles: profiles, lobbies: lobbies, metrics: m, log: log}
}

// Resolve settles one finished match. Each player is updated independently,
// so a failure for one player does not block the others; all failures are
// returned joined.
func (r *Resolver) Resolve(ctx context.Context, result game.MatchResult) error {
	var errs []error
	log := r.log.With(zap.String("lobby_id", result.LobbyID), zap.String("mode", string(result.Mode)))

	if result.Mode == game.ModeQuizDuel && len(result.Standings) == 2 {
		errs = append(errs, r.rateDuel(ctx, log, result.Standings)...)
	}

	for _, s := range result.Standings {
		if s.IsBot || !s.Finished {
			continue
		}
		xp := max(1, s.Score/xpPerPoints)
		if result.Mode == game.ModeQuizDuel && s.Rank == 0 {
			xp += duelWinBonus
		}
		if err := r.profiles.AddXP(ctx, s.PlayerID, xp); err != nil {
			log.Warn("error adding xp", zap.String("player_id", s.PlayerID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := r.lobbies.Finish(ctx, result.LobbyID); err != nil {
		log.Warn("error finishing lobby", zap.Error(err))
		errs = append(errs, err)
	}
	r.metrics.Resolved(string(result.Mode))
	log.Info("match resolved", zap.Int("players", len(result.Standings)))
	return errors.Join(errs...)
}

// rateDuel applies ELO to every human in a duel. Both sides are computed from
// the ratings read before either update.
func (r *Resolver) rateDuel(ctx context.Context, log *zap.Logger, standings []game.Standing) []error {
	var errs []error
	before := make(map[string]int, len(standings))
	for _, s := range standings {
		switch {
		case s.IsBot && s.BotRating != nil:
			before[s.PlayerID] = *s.BotRating
		case s.IsBot:
			before[s.PlayerID] = 0
		default:
			current, err := r.ratings.GetRating(ctx, s.PlayerID)
			if err != nil {
				return append(errs, err)
			}
			before[s.PlayerID] = current.Rating
		}
	}

	for i, s := range standings {
		if s.IsBot {
			continue
		}
		opponent := standings[1-i]
		multiplier, err := r.profiles.ActiveMultiplier(ctx, s.PlayerID)
		if err != nil {
			log.Warn("error reading score boost", zap.String("player_id", s.PlayerID), zap.Error(err))
			multiplier = 1
		}

		outcome, err := r.ratings.RecordMatch(ctx, s.PlayerID, before[opponent.PlayerID], s.Rank == 0, multiplier)
		if err != nil {
			log.Warn("error recording rating", zap.String("player_id", s.PlayerID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := r.profiles.SetRating(ctx, s.PlayerID, outcome.NewRating); err != nil {
			log.Warn("error mirroring rating", zap.String("player_id", s.PlayerID), zap.Error(err))
			errs = append(errs, err)
		}
		log.Info("rating updated",
			zap.String("player_id", s.PlayerID),
			zap.Int("delta", outcome.Delta),
			zap.Int("rating", outcome.NewRating),
		)
	}
	return errs
}
