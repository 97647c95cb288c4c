package websocket

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"github.com/thesrcielos/QuizBattle/internal/user"
	"github.com/thesrcielos/QuizBattle/websocket/actions"
	"github.com/thesrcielos/QuizBattle/websocket/router"
	"go.uber.org/zap"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

type Handler struct {
	secret   string
	registry *state.Registry
	router   *router.Router
	actions  *actions.Actions
	store    store.Store
	log      *zap.Logger
}

func NewHandler(secret string, registry *state.Registry, a *actions.Actions, st store.Store, log *zap.Logger) *Handler {
	return &Handler{
		secret:   secret,
		registry: registry,
		router:   router.NewRouter(a, log),
		actions:  a,
		store:    st,
		log:      log,
	}
}

// WebSocketHandler authenticates the token query parameter, upgrades the
// connection and streams the player's private events to it.
func (h *Handler) WebSocketHandler(c echo.Context) error {
	playerID, err := user.ValidateJWT(c.QueryParam("token"), h.secret)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("player_id", playerID), zap.Error(err))
		return err
	}

	conn := h.registry.Register(uuid.NewString(), playerID, ws)
	subCtx, cancelSub := context.WithCancel(context.Background())
	events, cancel, err := h.store.Subscribe(subCtx, store.Join("players", playerID))
	if err != nil {
		cancelSub()
		h.registry.Unregister(conn.ID)
		ws.Close()
		h.log.Error("error subscribing player events", zap.String("player_id", playerID), zap.Error(err))
		return nil
	}
	conn.Watch("player", func() {
		cancel()
		cancelSub()
	})
	go h.actions.Forward(conn, events)

	h.log.Info("player connected", zap.String("player_id", playerID), zap.String("conn_id", conn.ID))
	go h.listenPlayerMessages(conn, ws)
	return nil
}
