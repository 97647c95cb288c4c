package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	api_middleware "github.com/thesrcielos/QuizBattle/api/middleware"
	v1 "github.com/thesrcielos/QuizBattle/api/v1"
	"github.com/thesrcielos/QuizBattle/internal/bot"
	"github.com/thesrcielos/QuizBattle/internal/config"
	"github.com/thesrcielos/QuizBattle/internal/content"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/match"
	"github.com/thesrcielos/QuizBattle/internal/matchmaking"
	"github.com/thesrcielos/QuizBattle/internal/metrics"
	"github.com/thesrcielos/QuizBattle/internal/rating"
	"github.com/thesrcielos/QuizBattle/internal/session"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"github.com/thesrcielos/QuizBattle/internal/user"
	"github.com/thesrcielos/QuizBattle/pkg/db"
	"github.com/thesrcielos/QuizBattle/pkg/logger"
	"github.com/thesrcielos/QuizBattle/websocket"
	"github.com/thesrcielos/QuizBattle/websocket/actions"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	log := logger.Must(cfg.Production()).With(zap.String("instance", cfg.InstanceID))
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenPostgres(cfg)
	if err != nil {
		log.Fatal("error connecting to postgres", zap.Error(err))
	}
	if err := gdb.AutoMigrate(&user.User{}, &user.ScoreBoost{}, &rating.PlayerRating{}); err != nil {
		log.Fatal("error migrating schema", zap.Error(err))
	}

	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		rdb, err := db.OpenRedis(ctx, cfg)
		if err != nil {
			log.Fatal("error connecting to redis", zap.Error(err))
		}
		st = store.NewRedisStore(rdb, log)
	default:
		st = store.NewMemoryStore()
	}

	bank, err := content.ReadBank(cfg.QuestionBankPath)
	if err != nil {
		log.Fatal("error loading question bank", zap.Error(err))
	}
	provider := content.NewProvider(bank)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	users := user.NewUserService(user.NewUserRepository(gdb), cfg.JWTSecret, log)
	ratings := rating.NewRatingService(rating.NewRatingRepository(gdb), log)
	lobbies := lobby.NewLobbyService(lobby.NewLobbyRepository(st), provider, cfg, m, log)
	resolver := match.NewResolver(ratings, users, lobbies, m, log)

	hub := session.NewHub(ctx, st, lobbies, provider, bot.NewAgent(), resolver, session.TimingFromConfig(cfg), m, log)
	lobbies.AttachSessions(hub)

	queue := matchmaking.NewQueue(st, lobbies, m, log)
	go queue.Run(ctx)
	go lobbies.RunReaper(ctx, cfg.LobbyReapInterval)

	wsActions := actions.New(queue, hub, lobbies, users, st, log)
	wsHandler := websocket.NewHandler(cfg.JWTSecret, state.NewRegistry(), wsActions, st, log)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api_middleware.ErrorHandler(log)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := e.Group("/api/v1")
	v1.RegisterUserRoutes(api.Group("/users"), v1.NewUserHandler(users))

	jwtMiddleware := api_middleware.SetupJWTMiddleware(cfg.JWTSecret)
	lobbyGroup := api.Group("/lobbies")
	lobbyGroup.Use(jwtMiddleware)
	v1.RegisterLobbyRoutes(lobbyGroup, v1.NewLobbyHandler(lobbies, users, provider))

	ratingGroup := api.Group("/ratings")
	ratingGroup.Use(jwtMiddleware)
	v1.RegisterRatingRoutes(ratingGroup, v1.NewRatingHandler(ratings))

	e.GET("/play", wsHandler.WebSocketHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", zap.Int("active_sessions", hub.Active()))
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("error shutting down server", zap.Error(err))
	}
}
