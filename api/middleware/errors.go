package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {"error": message, "kind": kind}.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := echo.Map{"error": "internal error", "kind": apperrors.KindInternal}

		var appErr *apperrors.AppError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			code = appErr.Code
			body = echo.Map{"error": appErr.Message, "kind": appErr.Kind}
		case errors.As(err, &httpErr):
			code = httpErr.Code
			body = echo.Map{"error": httpErr.Message, "kind": kindForStatus(code)}
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Warn("error writing error response", zap.Error(err))
		}
	}
}

func kindForStatus(code int) apperrors.Kind {
	return apperrors.NewAppError(code, "", nil).Kind
}
