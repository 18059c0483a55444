package gateway

import (
	"context"

	"github.com/gradflow/core/internal/models"
	"go.uber.org/zap"
)

// Publisher hands freshly-created notification records to the channel layer
// for asynchronous fan-out. Called by the CRUD layer after the record is
// durably created.
type Publisher struct {
	layer  ChannelLayer
	logger *zap.Logger
}

// NewPublisher creates a Publisher. A nil layer is allowed: publishing
// degrades to a no-op and notifications remain queryable over REST.
func NewPublisher(layer ChannelLayer, logger *zap.Logger) *Publisher {
	return &Publisher{layer: layer, logger: logger}
}

// Publish resolves the notification's target group and enqueues the
// envelope. Fire-and-forget: it returns once the event is handed to the
// channel layer, not once delivered. Failures never propagate to the
// caller.
func (p *Publisher) Publish(ctx context.Context, n *models.NotificationModel) {
	if p == nil || p.layer == nil {
		return
	}

	group := GroupForNotification(n)
	if err := p.layer.GroupSend(ctx, group, NewEnvelope(n)); err != nil && p.logger != nil {
		p.logger.Warn("notification publish skipped",
			zap.String("group", group),
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
	}
}
