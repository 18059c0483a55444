package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-1", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.SessionID)
}

func TestSignWithOptions(t *testing.T) {
	token, err := SignWithOptions("user-2", time.Hour, SignOptions{
		Role:      "Advisor",
		SessionID: "sess-1",
	})
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "Advisor", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Sign("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("definitely.not.ajwt")
	assert.Error(t, err)
}
