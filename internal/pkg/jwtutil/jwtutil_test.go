package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "unit-test-secret"

	token, err := GenerateToken(secret, time.Hour, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestTokenWithoutExpiry(t *testing.T) {
	secret := "unit-test-secret"

	token, err := GenerateToken(secret, 0, 7)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Nil(t, claims.ExpiresAt, "zero lifetime means no expiry claim")
}

func TestParseTokenFailures(t *testing.T) {
	secret := "unit-test-secret"

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(secret, time.Hour, 1)
		require.NoError(t, err)

		_, err = ParseToken("other-secret", token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := Claims{
			UserID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ParseToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken(secret, "abc.def.ghi")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := GenerateToken(secret, time.Hour, 0)
		require.NoError(t, err)

		_, err = ParseToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
