// Package auth issues and verifies the signed session tokens that carry a
// user id, and guards HTTP handlers with them.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "nestegg"

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims is the session payload.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Sessions signs tokens with HS256 and a shared secret.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for userID and its expiry.
func (s *Sessions) Issue(userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("empty user id")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, exp, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (s *Sessions) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
