package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "steam",
		"sub": "76561198000000001",
		"exp": exp.Unix(),
	}).SignedString([]byte("not-the-platform-key"))
	require.NoError(t, err)
	return tok
}

func TestTokenClock_TokenExpiry(t *testing.T) {
	clock := NewTokenClock()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := clock.TokenExpiry(makeToken(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}

func TestTokenClock_RejectsGarbage(t *testing.T) {
	clock := NewTokenClock()

	_, err := clock.TokenExpiry("not.a.jwt")
	assert.Error(t, err)

	_, err = clock.TokenExpiry("")
	assert.Error(t, err)
}

func TestTokenClock_MissingExp(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewTokenClock().TokenExpiry(tok)
	assert.ErrorContains(t, err, "no exp")
}

func TestTokenClock_Expired(t *testing.T) {
	clock := NewTokenClock()
	now := time.Now()

	assert.True(t, clock.Expired(makeToken(t, now.Add(-time.Minute)), now))
	assert.False(t, clock.Expired(makeToken(t, now.Add(time.Hour)), now))
	assert.True(t, clock.Expired("garbage", now))
}
