package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/gradflow/core/internal/models"
	"github.com/stretchr/testify/assert"
)

// recordingLayer captures GroupSend calls for assertions.
type recordingLayer struct {
	group string
	env   Envelope
	calls int
	err   error
}

func (r *recordingLayer) GroupAdd(string, chan<- Envelope)     {}
func (r *recordingLayer) GroupDiscard(string, chan<- Envelope) {}
func (r *recordingLayer) GroupSend(_ context.Context, group string, env Envelope) error {
	r.group = group
	r.env = env
	r.calls++
	return r.err
}

func TestPublisherRoutesByRecipient(t *testing.T) {
	layer := &recordingLayer{}
	p := NewPublisher(layer, nil)

	n := models.NotificationModel{
		Title:         "Milestone completed",
		RecipientType: models.RecipientUser,
		RecipientID:   "u9",
	}
	n.ID = "n1"
	p.Publish(context.Background(), &n)

	assert.Equal(t, 1, layer.calls)
	assert.Equal(t, "notifications_u9", layer.group)
	assert.Equal(t, "n1", layer.env.ID)
	assert.Equal(t, "Milestone completed", layer.env.Title)
}

func TestPublisherNilLayerIsNoOp(t *testing.T) {
	p := NewPublisher(nil, nil)
	n := models.NotificationModel{RecipientType: models.RecipientAll}

	assert.NotPanics(t, func() { p.Publish(context.Background(), &n) })
}

func TestPublisherNilReceiverIsNoOp(t *testing.T) {
	var p *Publisher
	n := models.NotificationModel{RecipientType: models.RecipientAll}

	assert.NotPanics(t, func() { p.Publish(context.Background(), &n) })
}

func TestPublisherSwallowsLayerErrors(t *testing.T) {
	layer := &recordingLayer{err: errors.New("broker down")}
	p := NewPublisher(layer, nil)
	n := models.NotificationModel{RecipientType: models.RecipientAll}

	assert.NotPanics(t, func() { p.Publish(context.Background(), &n) })
	assert.Equal(t, 1, layer.calls)
}
