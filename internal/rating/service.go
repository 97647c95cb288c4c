package rating

import (
	"context"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"go.uber.org/zap"
)

const maxTopLimit = 100

type RatingService struct {
	repo RatingRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewRatingService(repo RatingRepository, log *zap.Logger) *RatingService {
	return &RatingService{repo: repo, log: log, now: time.Now}
}

func (s *RatingService) GetRating(ctx context.Context, playerID string) (*PlayerRating, error) {
	if playerID == "" {
		return nil, apperrors.NewAppError(400, "player id is required", nil)
	}
	return s.repo.GetOrCreate(ctx, playerID)
}

// RecordMatch applies one finished duel to a single player's rating. Each
// participant is updated independently from the same pre-match ratings.
func (s *RatingService) RecordMatch(ctx context.Context, playerID string, opponentRating int, won bool, multiplier float64) (*MatchOutcome, error) {
	current, err := s.repo.GetOrCreate(ctx, playerID)
	if err != nil {
		return nil, err
	}

	delta := CalculateEloChange(current.Rating, opponentRating, won)
	delta = ApplyMultiplier(delta, multiplier)

	outcome := &MatchOutcome{
		PlayerID:  playerID,
		Won:       won,
		OldRating: current.Rating,
	}

	current.Rating = ClampRating(current.Rating + delta)
	if won {
		current.Wins++
		current.WinStreak++
	} else {
		current.Losses++
		current.WinStreak = 0
	}
	if current.WinStreak > current.BestStreak {
		current.BestStreak = current.WinStreak
	}
	current.GamesPlayed++
	now := s.now()
	current.LastMatchAt = &now

	if err := s.repo.Save(ctx, current); err != nil {
		return nil, err
	}

	outcome.NewRating = current.Rating
	outcome.Delta = current.Rating - outcome.OldRating
	outcome.Tier = current.Tier()
	s.log.Info("rating updated",
		zap.String("player_id", playerID),
		zap.Int("old_rating", outcome.OldRating),
		zap.Int("new_rating", outcome.NewRating),
		zap.Bool("won", won),
	)
	return outcome, nil
}

func (s *RatingService) Top(ctx context.Context, limit int) ([]RatingResponse, error) {
	if limit <= 0 || limit > maxTopLimit {
		limit = 10
	}
	ratings, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RatingResponse, len(ratings))
	for i := range ratings {
		out[i] = ratings[i].Response()
	}
	return out, nil
}
