package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the caller identity. Tokens are issued by the external
// session component (or the token command in development).
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator turns a bearer token into verified claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnknownRole  = errors.New("unknown role")
)
