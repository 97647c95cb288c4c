package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"go.uber.org/zap"
)

type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type UserService struct {
	repo   UserRepository
	secret string
	log    *zap.Logger
	now    func() time.Time
}

func NewUserService(repo UserRepository, secret string, log *zap.Logger) *UserService {
	return &UserService{repo: repo, secret: secret, log: log, now: time.Now}
}

func (u *UserService) Signup(ctx context.Context, req SignupRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return "", apperrors.NewAppError(400, "username and password are required", nil)
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	created, err := u.repo.CreateUser(ctx, req.Username, req.Password, req.DisplayName)
	if err != nil {
		return "", err
	}

	token, errJWT := GenerateJWT(created.ID, u.secret)
	if errJWT != nil {
		return "", apperrors.NewAppError(500, "error creating jwt token", errJWT)
	}
	u.log.Info("user signed up", zap.Uint("user_id", created.ID))
	return token, nil
}

func (u *UserService) Login(ctx context.Context, username, password string) (string, error) {
	found, err := u.repo.ValidateUser(ctx, username, password)
	if err != nil {
		return "", apperrors.NewAppError(401, "invalid credentials", err)
	}
	token, errJWT := GenerateJWT(found.ID, u.secret)
	if errJWT != nil {
		return "", apperrors.NewAppError(500, "error creating jwt token", errJWT)
	}
	return token, nil
}

func (u *UserService) GetUser(ctx context.Context, playerID string) (*UserResponse, error) {
	found, err := u.find(ctx, playerID)
	if err != nil {
		return nil, err
	}
	resp := found.Response()
	return &resp, nil
}

// GetIdentity is the player-identity provider consumed by lobbies and matchmaking.
func (u *UserService) GetIdentity(ctx context.Context, playerID string) (Identity, error) {
	found, err := u.find(ctx, playerID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:          playerID,
		DisplayName: found.Name(),
		AvatarRef:   found.AvatarRef,
		Rating:      found.Rating,
		XP:          found.XP,
	}, nil
}

func (u *UserService) AddXP(ctx context.Context, playerID string, delta int) error {
	id, err := parsePlayerID(playerID)
	if err != nil {
		return apperrors.NewAppError(400, err.Error(), nil)
	}
	if delta <= 0 {
		return nil
	}
	return u.repo.AddXP(ctx, id, delta)
}

// SetRating mirrors a freshly computed rating onto the profile record.
func (u *UserService) SetRating(ctx context.Context, playerID string, rating int) error {
	id, err := parsePlayerID(playerID)
	if err != nil {
		return apperrors.NewAppError(400, err.Error(), nil)
	}
	return u.repo.SetRating(ctx, id, rating)
}

// ActiveMultiplier returns the strongest unexpired score boost, or 1.
func (u *UserService) ActiveMultiplier(ctx context.Context, playerID string) (float64, error) {
	id, err := parsePlayerID(playerID)
	if err != nil {
		return 1, apperrors.NewAppError(400, err.Error(), nil)
	}
	boosts, err := u.repo.ActiveBoosts(ctx, id, u.now())
	if err != nil {
		return 1, err
	}
	multiplier := 1.0
	for _, b := range boosts {
		if b.Multiplier > multiplier {
			multiplier = b.Multiplier
		}
	}
	return multiplier, nil
}

func (u *UserService) find(ctx context.Context, playerID string) (*User, error) {
	id, err := parsePlayerID(playerID)
	if err != nil {
		return nil, apperrors.NewAppError(400, err.Error(), nil)
	}
	found, err := u.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperrors.NewAppError(404, "user not found", errors.New("user not found"))
	}
	return found, nil
}
