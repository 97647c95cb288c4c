package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/thesrcielos/QuizBattle/internal/user"
)

type UserHandler struct {
	users *user.UserService
}

func NewUserHandler(users *user.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func RegisterUserRoutes(g *echo.Group, h *UserHandler) {
	g.POST("/signup", h.SignupHandler)
	g.POST("/login", h.LoginHandler)
	g.GET("/:id", h.GetUserHandler)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) SignupHandler(c echo.Context) error {
	var r user.SignupRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	token, err := h.users.Signup(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token})
}

func (h *UserHandler) LoginHandler(c echo.Context) error {
	var r LoginRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
	}
	token, err := h.users.Login(c.Request().Context(), r.Username, r.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (h *UserHandler) GetUserHandler(c echo.Context) error {
	u, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
