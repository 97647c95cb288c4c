package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "LOBBY_TEARDOWN_GRACE", "INTERMISSION_LEADERBOARD", "DUEL_QUESTION_COUNT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.TeardownGrace)
	assert.Equal(t, 2500*time.Millisecond, cfg.IntermissionLeaderboard)
	assert.Equal(t, 10, cfg.DuelQuestionCount)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DUEL_TIME_PER_QUESTION", "20s")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 20*time.Second, cfg.DuelTimePerQuestion)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "etcd")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("LOBBY_TTL", "forever")

	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "quiz", DBPort: "5433"}
	assert.Equal(t, "host=db user=u password=p dbname=quiz port=5433 sslmode=disable", cfg.PostgresDSN())
}
