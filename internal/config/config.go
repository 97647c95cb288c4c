package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"quizbattle"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisTLS      bool   `env:"REDIS_TLS" envDefault:"false"`

	JWTSecret string `env:"JWT_SECRET"`

	// StoreBackend selects the shared state store: "redis" or "memory".
	StoreBackend     string `env:"STORE_BACKEND" envDefault:"redis"`
	QuestionBankPath string `env:"QUESTION_BANK_PATH" envDefault:"questions.json"`
	InstanceID       string `env:"INSTANCE_ID"`

	TeardownGrace     time.Duration `env:"LOBBY_TEARDOWN_GRACE" envDefault:"5s"`
	LobbyTTL          time.Duration `env:"LOBBY_TTL" envDefault:"30m"`
	LobbyReapInterval time.Duration `env:"LOBBY_REAP_INTERVAL" envDefault:"5m"`

	DuelQuestionCount   int           `env:"DUEL_QUESTION_COUNT" envDefault:"10"`
	DuelTimePerQuestion time.Duration `env:"DUEL_TIME_PER_QUESTION" envDefault:"15s"`

	IntermissionLeaderboard time.Duration `env:"INTERMISSION_LEADERBOARD" envDefault:"2500ms"`
	IntermissionCountdown   time.Duration `env:"INTERMISSION_COUNTDOWN" envDefault:"3s"`
	RoundEndPause           time.Duration `env:"CHARADES_ROUND_END_PAUSE" envDefault:"5s"`
}

// Load reads an optional .env file and then parses the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StoreBackend != "redis" && cfg.StoreBackend != "memory" {
		return Config{}, fmt.Errorf("STORE_BACKEND must be redis or memory, got %q", cfg.StoreBackend)
	}
	if cfg.DuelQuestionCount <= 0 {
		return Config{}, fmt.Errorf("DUEL_QUESTION_COUNT must be positive")
	}
	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}
