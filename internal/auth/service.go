package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
)

type JWTTokenGenerator struct {
	Secret []byte
	Issuer string
	now    func() time.Time
}

func NewJWTTokenGenerator(secret, issuer string) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		Issuer: issuer,
		now:    time.Now,
	}
}

// GenerateToken signs an HS256 token for userID with the given role.
func (j *JWTTokenGenerator) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if role != internal.RoleInvestor && role != internal.RoleAdmin {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := j.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

// ValidateToken accepts only HS256 tokens signed with the configured secret
// and, when an issuer is configured, issued by it.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role != internal.RoleInvestor && claims.Role != internal.RoleAdmin {
		return nil, ErrUnknownRole
	}
	return claims, nil
}
