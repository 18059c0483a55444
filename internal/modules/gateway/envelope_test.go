package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gradflow/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	n := models.NotificationModel{
		Title:      "Defense scheduled",
		Message:    "Room 204, tomorrow 10:00",
		Type:       "defense",
		Priority:   "high",
		Read:       false,
		ActionURL:  "/defenses/d1",
		ActionText: "View details",
	}
	n.ID = "n1"
	n.CreatedAt = created

	env := NewEnvelope(&n)
	assert.Equal(t, "n1", env.ID)
	assert.Equal(t, "2026-03-14T09:30:00Z", env.Timestamp)
	require.NotNil(t, env.ActionURL)
	assert.Equal(t, "/defenses/d1", *env.ActionURL)
}

func TestEnvelopeOmitsEmptyActionAsNull(t *testing.T) {
	n := models.NotificationModel{Title: "t"}
	env := NewEnvelope(&n)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "action_url")
	assert.Nil(t, raw["action_url"])
	assert.Nil(t, raw["action_text"])
}
