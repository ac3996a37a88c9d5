package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClock reads expiry instants out of platform bearer tokens.
// Signatures are not verified: the platform is the only party that checks them.
type TokenClock struct {
	parser *jwt.Parser
}

// NewTokenClock creates a TokenClock
func NewTokenClock() *TokenClock {
	return &TokenClock{parser: jwt.NewParser()}
}

// TokenExpiry returns the exp claim of token.
func (c *TokenClock) TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return exp.Time, nil
}

// Expired reports whether token expires at or before now. Undecodable tokens count as expired.
func (c *TokenClock) Expired(token string, now time.Time) bool {
	exp, err := c.TokenExpiry(token)
	if err != nil {
		return true
	}
	return !exp.After(now)
}
