package user

import (
	"context"
	"errors"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const passwordCost = 12

type UserRepository interface {
	CreateUser(ctx context.Context, username, password, displayName string) (*User, error)
	ValidateUser(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	AddXP(ctx context.Context, id uint, delta int) error
	SetRating(ctx context.Context, id uint, rating int) error
	ActiveBoosts(ctx context.Context, id uint, at time.Time) ([]ScoreBoost, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) CreateUser(ctx context.Context, username, password, displayName string) (*User, error) {
	var exists User
	result := r.db.WithContext(ctx).Where("username = ?", username).First(&exists)
	if result.Error == nil {
		return nil, apperrors.NewAppError(409, "user already exists", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, err
	}
	newUser := User{
		Username:    username,
		Password:    string(hashed),
		DisplayName: displayName,
	}

	if err := r.db.WithContext(ctx).Create(&newUser).Error; err != nil {
		return nil, apperrors.TransientSyncFailure("error creating user", err)
	}
	return &newUser, nil
}

func (r *GormUserRepository) ValidateUser(ctx context.Context, username, password string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.TransientSyncFailure("error getting user", err)
	}
	return &u, nil
}

func (r *GormUserRepository) AddXP(ctx context.Context, id uint, delta int) error {
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		UpdateColumn("xp", gorm.Expr("xp + ?", delta)).Error
	if err != nil {
		return apperrors.TransientSyncFailure("error updating xp", err)
	}
	return nil
}

func (r *GormUserRepository) SetRating(ctx context.Context, id uint, rating int) error {
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		UpdateColumn("rating", rating).Error
	if err != nil {
		return apperrors.TransientSyncFailure("error updating profile rating", err)
	}
	return nil
}

func (r *GormUserRepository) ActiveBoosts(ctx context.Context, id uint, at time.Time) ([]ScoreBoost, error) {
	boosts := []ScoreBoost{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", id, at).
		Find(&boosts).Error
	if err != nil {
		return nil, apperrors.TransientSyncFailure("error listing boosts", err)
	}
	return boosts, nil
}
