package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/thesrcielos/QuizBattle/internal/user"
)

const contextKey = "user"

func SetupJWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(user.JwtCustomClaims)
		},
		SigningKey: []byte(secret),
		ContextKey: contextKey,
	})
}

// PlayerID returns the authenticated player of a request that passed the JWT
// middleware.
func PlayerID(c echo.Context) (string, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(*user.JwtCustomClaims)
	if !ok || claims.Id == 0 {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return user.PlayerID(claims.Id), nil
}
