package user

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"go.uber.org/zap"
)

// mockGenerateJWT is a helper to override GenerateJWT in tests
var mockGenerateJWT func(id uint, secret string) (string, error)

func TestMain(m *testing.M) {
	orig := GenerateJWT
	GenerateJWT = func(id uint, secret string) (string, error) {
		if mockGenerateJWT != nil {
			return mockGenerateJWT(id, secret)
		}
		return orig(id, secret)
	}
	code := m.Run()
	GenerateJWT = orig
	os.Exit(code)
}

func newTestUserService() (*UserService, *MockUserRepository) {
	repo := &MockUserRepository{}
	return NewUserService(repo, "secret", zap.NewNop()), repo
}

func TestUserService_Signup(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()

	mockRepo.On("CreateUser", ctx, "test", "pass", "test").Return(&User{ID: 1, Username: "test"}, nil)
	mockGenerateJWT = func(id uint, secret string) (string, error) { return "token123", nil }

	token, err := service.Signup(ctx, SignupRequest{Username: "test", Password: "pass"})
	assert.NoError(t, err)
	assert.Equal(t, "token123", token)
	mockRepo.AssertExpectations(t)
}

func TestUserService_Signup_Validation(t *testing.T) {
	service, _ := newTestUserService()
	_, err := service.Signup(context.Background(), SignupRequest{Username: "  "})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestUserService_Signup_Error(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	mockRepo.On("CreateUser", ctx, "err", "fail", "Err").Return(nil, errors.New("fail"))

	_, err := service.Signup(ctx, SignupRequest{Username: "err", Password: "fail", DisplayName: "Err"})
	assert.Error(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUserService_Login(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()

	mockRepo.On("ValidateUser", ctx, "foo", "bar").Return(&User{ID: 2, Username: "foo"}, nil)
	mockGenerateJWT = func(id uint, secret string) (string, error) { return "tok456", nil }

	token, err := service.Login(ctx, "foo", "bar")
	assert.NoError(t, err)
	assert.Equal(t, "tok456", token)
	mockRepo.AssertExpectations(t)
}

func TestUserService_Login_InvalidCredentials(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	mockRepo.On("ValidateUser", ctx, "foo", "nope").Return(nil, errors.New("mismatch"))

	_, err := service.Login(ctx, "foo", "nope")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestUserService_GetIdentity(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	mockRepo.On("GetUser", ctx, uint(3)).Return(&User{ID: 3, Username: "alice", Rating: 1100, XP: 40}, nil)

	identity, err := service.GetIdentity(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", identity.ID)
	assert.Equal(t, "alice", identity.DisplayName)
	assert.Equal(t, 1100, identity.Rating)
	assert.Equal(t, 40, identity.XP)
}

func TestUserService_GetIdentity_NotFound(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	mockRepo.On("GetUser", ctx, uint(9)).Return(nil, nil)

	_, err := service.GetIdentity(ctx, "9")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = service.GetIdentity(ctx, "bot-1")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestUserService_AddXP(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	mockRepo.On("AddXP", ctx, uint(4), 12).Return(nil)

	assert.NoError(t, service.AddXP(ctx, "4", 12))
	assert.NoError(t, service.AddXP(ctx, "4", 0))
	mockRepo.AssertNumberOfCalls(t, "AddXP", 1)
}

func TestUserService_ActiveMultiplier(t *testing.T) {
	service, mockRepo := newTestUserService()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	mockRepo.On("ActiveBoosts", ctx, uint(5), now).Return([]ScoreBoost{{Multiplier: 1.5}, {Multiplier: 2}}, nil)
	mockRepo.On("ActiveBoosts", ctx, uint(6), now).Return([]ScoreBoost{}, nil)
	mockRepo.On("ActiveBoosts", ctx, uint(7), mock.Anything).Return([]ScoreBoost{}, errors.New("db down"))

	m, err := service.ActiveMultiplier(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, 2.0, m)

	m, err = service.ActiveMultiplier(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)

	m, err = service.ActiveMultiplier(ctx, "7")
	assert.Error(t, err)
	assert.Equal(t, 1.0, m)
}

func TestValidateJWT_RoundTrip(t *testing.T) {
	mockGenerateJWT = nil
	token, err := GenerateJWT(42, "s3cret")
	require.NoError(t, err)

	id, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = ValidateJWT(token, "other")
	assert.Error(t, err)
	_, err = ValidateJWT("", "s3cret")
	assert.Error(t, err)
}
