package user

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 72 * time.Hour

type JwtCustomClaims struct {
	Id uint `json:"id"`
	jwt.RegisteredClaims
}

var GenerateJWT = func(id uint, secret string) (string, error) {
	claims := JwtCustomClaims{
		Id: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT returns the player id carried by a signed token.
func ValidateJWT(tokenString, secret string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty token")
	}

	claims := &JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Id == 0 {
		return "", errors.New("id not found in token claims")
	}
	return PlayerID(claims.Id), nil
}

func PlayerID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parsePlayerID(playerID string) (uint, error) {
	id, err := strconv.ParseUint(playerID, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid player id %q", playerID)
	}
	return uint(id), nil
}
