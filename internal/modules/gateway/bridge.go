package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	pkgredis "github.com/gradflow/core/internal/pkg/redis"
	"go.uber.org/zap"
)

const redisChanEvents = "gf:gateway:events"

// RedisBridge extends a LocalLayer with cross-instance fan-out: every
// GroupSend is also published on a Redis channel, and events published by
// other server instances are replayed into the local layer.
type RedisBridge struct {
	local      *LocalLayer
	rc         *pkgredis.Client
	logger     *zap.Logger
	instanceID string
}

type bridgeEvent struct {
	Origin   string   `json:"origin"`
	Group    string   `json:"group"`
	Envelope Envelope `json:"envelope"`
}

// NewRedisBridge wraps local with Redis-backed fan-out.
func NewRedisBridge(local *LocalLayer, rc *pkgredis.Client, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		local:      local,
		rc:         rc,
		logger:     logger,
		instanceID: uuid.New().String(),
	}
}

func (b *RedisBridge) GroupAdd(group string, member chan<- Envelope) {
	b.local.GroupAdd(group, member)
}

func (b *RedisBridge) GroupDiscard(group string, member chan<- Envelope) {
	b.local.GroupDiscard(group, member)
}

// GroupSend delivers locally and relays the event to peer instances.
// Redis publish failures are logged, never surfaced to the caller.
func (b *RedisBridge) GroupSend(ctx context.Context, group string, env Envelope) error {
	if err := b.local.GroupSend(ctx, group, env); err != nil {
		return err
	}

	data, err := json.Marshal(bridgeEvent{Origin: b.instanceID, Group: group, Envelope: env})
	if err != nil {
		return nil
	}
	if err := b.rc.Publish(ctx, redisChanEvents, string(data)); err != nil && b.logger != nil {
		b.logger.Warn("gateway bridge publish failed", zap.String("group", group), zap.Error(err))
	}
	return nil
}

// Run subscribes to the bridge channel and replays peer events into the
// local layer until ctx is cancelled. Own events are skipped by origin id.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.rc.Subscribe(ctx, redisChanEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev bridgeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			if ev.Origin == b.instanceID {
				continue
			}
			_ = b.local.GroupSend(ctx, ev.Group, ev.Envelope)
		}
	}
}
