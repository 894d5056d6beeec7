package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, expires, err := tokens.Issue(42, "aria")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "aria", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestTokens_Verify_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	good, _, err := tokens.Issue(1, "aria")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokens("other", time.Hour).Verify(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokens("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, _, err := past.Issue(1, "aria")
		require.NoError(t, err)

		_, err = tokens.Verify(stale)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Verify(none)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user", func(t *testing.T) {
		signed, _, err := tokens.Issue(0, "ghost")
		require.NoError(t, err)
		_, err = tokens.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, CheckPassword(hash, "hunter2"))
	assert.ErrorIs(t, CheckPassword(hash, "hunter3"), ErrInvalidCredentials)
}
