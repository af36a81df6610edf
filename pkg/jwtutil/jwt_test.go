package jwtutil

import (
	"testing"
	"time"

	"vendor-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	token, err := GenerateToken("buyer@example.com", 7)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, uint(7), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "x@example.com"})
	signed, err := other.SignedString([]byte("another-key"))
	require.NoError(t, err)
	_, err = ValidateToken(signed)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "x@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err = expired.SignedString([]byte("test-key"))
	require.NoError(t, err)
	_, err = ValidateToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestNotInitialized(t *testing.T) {
	jwtConfig = nil
	_, err := GenerateToken("a@example.com", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = ValidateToken("x")
	assert.ErrorIs(t, err, ErrNotInitialized)
}
