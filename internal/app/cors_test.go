package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOriginHost(t *testing.T) {
	assert.Equal(t, "gradflow.example.edu", extractOriginHost("https://gradflow.example.edu"))
	assert.Equal(t, "localhost:3000", extractOriginHost("http://localhost:3000"))
	assert.Equal(t, "not-a-url", extractOriginHost("not-a-url"))
}

func TestMatchOriginPattern(t *testing.T) {
	assert.True(t, matchOriginPattern("gradflow.example.edu", "gradflow.example.edu"))
	assert.True(t, matchOriginPattern("*.example.edu", "app.example.edu"))
	assert.False(t, matchOriginPattern("*.example.edu", "example.org"))
	assert.True(t, matchOriginPattern("localhost:*", "localhost:3000"))
	assert.False(t, matchOriginPattern("localhost:*", "evil.com:3000"))
}

func TestParseTimezoneLocation(t *testing.T) {
	loc, err := parseTimezoneLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	loc, err = parseTimezoneLocation("+02:00")
	require.NoError(t, err)
	_, offset := time.Now().In(loc).Zone()
	assert.Equal(t, 2*3600, offset)

	_, err = parseTimezoneLocation("Not/AZone")
	assert.Error(t, err)
}
