package gateway

import (
	"time"

	"github.com/gradflow/core/internal/models"
)

// Envelope is the serialized notification payload pushed to a client,
// one per fan-out event.
type Envelope struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Type       string  `json:"type"`
	Priority   string  `json:"priority"`
	Timestamp  string  `json:"timestamp"` // ISO-8601
	Read       bool    `json:"read"`
	ActionURL  *string `json:"action_url"`
	ActionText *string `json:"action_text"`
}

// NewEnvelope builds the outbound envelope for a notification record.
func NewEnvelope(n *models.NotificationModel) Envelope {
	return Envelope{
		ID:         n.ID,
		Title:      n.Title,
		Message:    n.Message,
		Type:       n.Type,
		Priority:   n.Priority,
		Timestamp:  n.CreatedAt.UTC().Format(time.RFC3339),
		Read:       n.Read,
		ActionURL:  nullable(n.ActionURL),
		ActionText: nullable(n.ActionText),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
