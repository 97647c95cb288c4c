package v1

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"
	api_middleware "github.com/thesrcielos/QuizBattle/api/middleware"
	"github.com/thesrcielos/QuizBattle/internal/content"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/lobby"
	"github.com/thesrcielos/QuizBattle/internal/user"
)

const INVALID_REQUEST = "invalid request"

const qrSize = 256

type Identities interface {
	GetIdentity(ctx context.Context, playerID string) (user.Identity, error)
}

type Topics interface {
	Topics() []content.TopicSummary
}

type LobbyHandler struct {
	lobbies    *lobby.LobbyService
	identities Identities
	topics     Topics
}

func NewLobbyHandler(lobbies *lobby.LobbyService, identities Identities, topics Topics) *LobbyHandler {
	return &LobbyHandler{lobbies: lobbies, identities: identities, topics: topics}
}

func RegisterLobbyRoutes(g *echo.Group, h *LobbyHandler) {
	g.POST("", h.CreateLobbyHandler)
	g.POST("/join", h.JoinLobbyHandler)
	g.GET("/topics", h.TopicsHandler)
	g.GET("/pin/:pin/qr", h.QRCodeHandler)
	g.GET("/:id", h.GetLobbyHandler)
	g.PUT("/:id/config", h.ConfigureLobbyHandler)
	g.POST("/:id/start", h.StartLobbyHandler)
	g.POST("/:id/bot", h.AddBotHandler)
	g.DELETE("/:id", h.TeardownLobbyHandler)
	g.DELETE("/:id/players", h.LeaveLobbyHandler)
}

type CreateLobbyRequest struct {
	Mode game.Mode `json:"mode"`
}

type JoinLobbyRequest struct {
	Pin string `json:"pin"`
}

type AddBotRequest struct {
	Rating int `json:"rating"`
}

func (h *LobbyHandler) player(c echo.Context) (game.Player, error) {
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return game.Player{}, err
	}
	identity, err := h.identities.GetIdentity(c.Request().Context(), playerID)
	if err != nil {
		return game.Player{}, err
	}
	return game.Player{ID: identity.ID, DisplayName: identity.DisplayName, AvatarRef: identity.AvatarRef}, nil
}

func (h *LobbyHandler) CreateLobbyHandler(c echo.Context) error {
	var r CreateLobbyRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	host, err := h.player(c)
	if err != nil {
		return err
	}
	l, err := h.lobbies.Create(c.Request().Context(), host, r.Mode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"lobby": l})
}

func (h *LobbyHandler) JoinLobbyHandler(c echo.Context) error {
	var r JoinLobbyRequest
	if err := c.Bind(&r); err != nil || r.Pin == "" {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	p, err := h.player(c)
	if err != nil {
		return err
	}
	l, err := h.lobbies.Join(c.Request().Context(), r.Pin, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"lobby": l})
}

func (h *LobbyHandler) GetLobbyHandler(c echo.Context) error {
	l, err := h.lobbies.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"lobby": l})
}

func (h *LobbyHandler) TopicsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"topics": h.topics.Topics()})
}

func (h *LobbyHandler) ConfigureLobbyHandler(c echo.Context) error {
	var settings lobby.Settings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return err
	}
	l, err := h.lobbies.Configure(c.Request().Context(), c.Param("id"), playerID, settings)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"lobby": l})
}

func (h *LobbyHandler) StartLobbyHandler(c echo.Context) error {
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return err
	}
	l, err := h.lobbies.Start(c.Request().Context(), c.Param("id"), playerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, echo.Map{"lobby": l})
}

func (h *LobbyHandler) AddBotHandler(c echo.Context) error {
	var r AddBotRequest
	if err := c.Bind(&r); err != nil || r.Rating < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return err
	}
	l, err := h.lobbies.AddBot(c.Request().Context(), c.Param("id"), playerID, r.Rating)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, echo.Map{"lobby": l})
}

func (h *LobbyHandler) TeardownLobbyHandler(c echo.Context) error {
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return err
	}
	if err := h.lobbies.Teardown(c.Request().Context(), c.Param("id"), playerID); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, echo.Map{"lobby": c.Param("id")})
}

func (h *LobbyHandler) LeaveLobbyHandler(c echo.Context) error {
	playerID, err := api_middleware.PlayerID(c)
	if err != nil {
		return err
	}
	if err := h.lobbies.Leave(c.Request().Context(), c.Param("id"), playerID); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, echo.Map{"left": true})
}

// QRCodeHandler renders a PNG QR code of the join link for a lobby PIN.
func (h *LobbyHandler) QRCodeHandler(c echo.Context) error {
	pin := c.Param("pin")
	if _, err := h.lobbies.FindByPin(c.Request().Context(), pin); err != nil {
		return err
	}
	link := url.URL{
		Scheme:   c.Scheme(),
		Host:     c.Request().Host,
		Path:     "/join",
		RawQuery: url.Values{"pin": {pin}}.Encode(),
	}
	png, err := qrcode.Encode(link.String(), qrcode.Medium, qrSize)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
