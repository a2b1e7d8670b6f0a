package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "paygate/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "SOFCBGSF")

	token, err := svc.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewService("test-signing-key", "SOFCBGSF")

	token, err := svc.GenerateToken("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenWrongKey(t *testing.T) {
	minter := NewService("signing-key-a", "SOFCBGSF")
	verifier := NewService("signing-key-b", "SOFCBGSF")

	token, err := minter.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateGarbageToken(t *testing.T) {
	svc := NewService("test-signing-key", "SOFCBGSF")

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.Error(t, err, "token %q", token)
	}
}
