package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", "marketplace", time.Hour)

	signed, err := tokens.Generate(42)
	require.NoError(t, err)

	userID, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tokens := NewTokens("secret", "marketplace", time.Hour)
	other := NewTokens("different", "marketplace", time.Hour)

	signed, err := tokens.Generate(42)
	require.NoError(t, err)

	_, err = other.Validate(signed)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens := NewTokens("secret", "marketplace", -time.Minute)

	signed, err := tokens.Generate(42)
	require.NoError(t, err)

	_, err = tokens.Validate(signed)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	tokens := NewTokens("secret", "marketplace", time.Hour)

	_, err := tokens.Validate("not-a-token")
	assert.Error(t, err)
}
