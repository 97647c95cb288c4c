package rating

import (
	"context"
	"errors"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"gorm.io/gorm"
)

type RatingRepository interface {
	// GetOrCreate returns the player's rating, creating it at 0 on first lookup.
	GetOrCreate(ctx context.Context, playerID string) (*PlayerRating, error)
	Save(ctx context.Context, rating *PlayerRating) error
	Top(ctx context.Context, limit int) ([]PlayerRating, error)
}

type GormRatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *GormRatingRepository {
	return &GormRatingRepository{db: db}
}

func (r *GormRatingRepository) GetOrCreate(ctx context.Context, playerID string) (*PlayerRating, error) {
	var rating PlayerRating
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&rating).Error
	if err == nil {
		return &rating, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.TransientSyncFailure("error getting rating", err)
	}

	rating = PlayerRating{PlayerID: playerID}
	if err := r.db.WithContext(ctx).Where(PlayerRating{PlayerID: playerID}).FirstOrCreate(&rating).Error; err != nil {
		return nil, apperrors.TransientSyncFailure("error creating rating", err)
	}
	return &rating, nil
}

func (r *GormRatingRepository) Save(ctx context.Context, rating *PlayerRating) error {
	if err := r.db.WithContext(ctx).Save(rating).Error; err != nil {
		return apperrors.TransientSyncFailure("error saving rating", err)
	}
	return nil
}

func (r *GormRatingRepository) Top(ctx context.Context, limit int) ([]PlayerRating, error) {
	ratings := []PlayerRating{}
	err := r.db.WithContext(ctx).
		Order("rating desc").
		Order("player_id asc").
		Limit(limit).
		Find(&ratings).Error
	if err != nil {
		return nil, apperrors.TransientSyncFailure("error listing ratings", err)
	}
	return ratings, nil
}
