package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T, secret string, ttl time.Duration) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(secret, ttl)
	require.NoError(t, err)
	return tokens
}

func TestTokenServiceRequiresSecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		tokens, err := NewTokenService(secret, time.Hour)
		assert.ErrorIs(t, err, ErrEmptySecret)
		assert.Nil(t, tokens)
	}

	// a token signed with an empty key is refused by a configured service
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte{})
	require.NoError(t, err)
	_, err = newTokens(t, "secret", time.Hour).Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTokens(t, "secret", time.Hour)

	token, err := tokens.Generate(7, "asha@example.com")
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestTokenExpired(t *testing.T) {
	tokens := newTokens(t, "secret", time.Hour)
	token, err := tokens.Generate(7, "asha@example.com")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejected(t *testing.T) {
	tokens := newTokens(t, "secret", time.Hour)

	other, err := newTokens(t, "other-secret", time.Hour).Generate(7, "asha@example.com")
	require.NoError(t, err)
	_, err = tokens.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 7}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := tokens.Generate(0, "")
	require.NoError(t, err)
	_, err = tokens.Parse(anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
