package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/niksmo/shop/internal/core/domain"
)

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// An Authenticator resolves the request principal from
// an HS256 bearer token.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) Authenticator {
	return Authenticator{[]byte(secret)}
}

// Principal returns the anonymous principal when the request has no token
// and [domain.ErrUnauthenticated] when the token is invalid.
func (a Authenticator) Principal(r *http.Request) (domain.Principal, error) {
	const op = "Authenticator.Principal"

	tokenString, ok := extractToken(r)
	if !ok {
		return domain.Principal{}, nil
	}

	claims, err := a.validateToken(tokenString)
	if err != nil {
		return domain.Principal{}, fmt.Errorf(
			"%s: %w: %w", op, domain.ErrUnauthenticated, err,
		)
	}

	return domain.Principal{
		ID:       claims.UserID,
		Username: claims.Username,
		IsStaff:  claims.IsStaff,
	}, nil
}

func (a Authenticator) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   p.ID,
		Username: p.Username,
		IsStaff:  p.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a Authenticator) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token without user")
	}
	return claims, nil
}

func extractToken(r *http.Request) (string, bool) {
	const prefix = "BEARER "
	bearer := r.Header.Get("Authorization")
	if len(bearer) > len(prefix) && strings.ToUpper(bearer[:len(prefix)]) == prefix {
		return bearer[len(prefix):], true
	}
	return "", false
}
