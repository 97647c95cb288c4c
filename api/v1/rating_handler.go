package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/thesrcielos/QuizBattle/internal/rating"
)

type RatingHandler struct {
	ratings *rating.RatingService
}

func NewRatingHandler(ratings *rating.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

func RegisterRatingRoutes(g *echo.Group, h *RatingHandler) {
	g.GET("/top", h.TopRatingsHandler)
	g.GET("/:id", h.GetRatingHandler)
}

func (h *RatingHandler) GetRatingHandler(c echo.Context) error {
	r, err := h.ratings.GetRating(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r.Response())
}

func (h *RatingHandler) TopRatingsHandler(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, INVALID_REQUEST)
		}
		limit = parsed
	}
	top, err := h.ratings.Top(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ratings": top})
}
