package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gradflow/core/internal/models"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 32
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8 * 1024
)

// ActionHandler serves client-initiated actions on an open connection.
// Implemented by the notification service; injected to keep the channel
// free of storage concerns.
type ActionHandler interface {
	ListUnread(ctx context.Context, p Principal) ([]models.NotificationModel, error)
	MarkRead(ctx context.Context, p Principal, notificationID string) error
}

// actionKind is the decoded variant of an inbound client frame.
type actionKind int

const (
	actionUnknown actionKind = iota
	actionGetNotifications
	actionMarkRead
	actionMarkAllRead
)

func parseAction(s string) actionKind {
	switch s {
	case "get_notifications":
		return actionGetNotifications
	case "mark_read":
		return actionMarkRead
	case "mark_all_read":
		return actionMarkAllRead
	default:
		return actionUnknown
	}
}

// inboundFrame is the client → server message shape.
type inboundFrame struct {
	Action         string `json:"action"`
	NotificationID string `json:"notification_id,omitempty"`
}

// outboundFrame is a non-envelope server → client message (action replies
// and error frames). Fan-out events are written as the bare Envelope.
type outboundFrame struct {
	Event          string     `json:"event"`
	Data           []Envelope `json:"data,omitempty"`
	NotificationID string     `json:"notification_id,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// Conn is one open realtime session: it owns exactly one Principal and the
// set of groups it joined on accept. Lifecycle is Connecting → Open →
// Closed with no intermediate states.
type Conn struct {
	ws        *websocket.Conn
	principal Principal
	layer     ChannelLayer
	actions   ActionHandler
	logger    *zap.Logger

	groups  []string
	events  chan Envelope
	replies chan outboundFrame
	done    chan struct{}

	closeOnce sync.Once
}

// NewConn wraps an accepted websocket in a Conn joined to the given groups.
func NewConn(ws *websocket.Conn, p Principal, groups []string, layer ChannelLayer, actions ActionHandler, logger *zap.Logger) *Conn {
	return &Conn{
		ws:        ws,
		principal: p,
		layer:     layer,
		actions:   actions,
		logger:    logger,
		groups:    groups,
		events:    make(chan Envelope, sendBufferSize),
		replies:   make(chan outboundFrame, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// Run transitions the connection to Open: joins its groups, then pumps
// reads and writes until the peer disconnects or ctx is cancelled. Cleanup
// is guaranteed to run on every exit path.
func (c *Conn) Run(ctx context.Context) {
	for _, g := range c.groups {
		c.layer.GroupAdd(g, c.events)
	}
	defer c.Close()

	go c.writePump()
	c.readPump(ctx)
}

// Close transitions the connection to Closed: leaves every joined group and
// releases the write pump. Idempotent; safe to call from any exit path.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		for _, g := range c.groups {
			c.layer.GroupDiscard(g, c.events)
		}
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump handles inbound frames until the socket errors or closes.
// Malformed frames and unknown actions are answered with an error frame,
// never a dropped connection.
func (c *Conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(outboundFrame{Event: "error", Message: "malformed frame"})
			continue
		}
		c.dispatch(ctx, frame)
	}
}

// dispatch routes one decoded inbound frame.
func (c *Conn) dispatch(ctx context.Context, frame inboundFrame) {
	kind := parseAction(frame.Action)

	if kind != actionUnknown && c.principal.IsAnonymous() {
		c.reply(outboundFrame{Event: "error", Message: "authentication required"})
		return
	}

	switch kind {
	case actionGetNotifications:
		items, err := c.actions.ListUnread(ctx, c.principal)
		if err != nil {
			c.reply(outboundFrame{Event: "error", Message: "failed to load notifications"})
			return
		}
		envelopes := make([]Envelope, len(items))
		for i := range items {
			envelopes[i] = NewEnvelope(&items[i])
		}
		c.reply(outboundFrame{Event: "notifications", Data: envelopes})

	case actionMarkRead:
		if err := c.actions.MarkRead(ctx, c.principal, frame.NotificationID); err != nil {
			c.reply(outboundFrame{Event: "error", Message: "failed to mark read"})
			return
		}
		c.reply(outboundFrame{Event: "read", NotificationID: frame.NotificationID})

	case actionMarkAllRead:
		items, err := c.actions.ListUnread(ctx, c.principal)
		if err != nil {
			c.reply(outboundFrame{Event: "error", Message: "failed to mark read"})
			return
		}
		for i := range items {
			_ = c.actions.MarkRead(ctx, c.principal, items[i].ID)
		}
		c.reply(outboundFrame{Event: "read_all"})

	default:
		c.reply(outboundFrame{Event: "error", Message: "unknown action"})
	}
}

func (c *Conn) reply(frame outboundFrame) {
	select {
	case c.replies <- frame:
	case <-c.done:
	}
}

// writePump serializes all socket writes: fan-out envelopes in channel-layer
// delivery order, action replies, and keepalive pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case env := <-c.events:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				c.closeOnError(err)
				return
			}

		case frame := <-c.replies:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.closeOnError(err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeOnError(err)
				return
			}
		}
	}
}

func (c *Conn) closeOnError(err error) {
	if c.logger != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Debug("gateway write failed", zap.Error(err))
	}
	c.Close()
}

// Groups returns the groups this connection joined on accept.
func (c *Conn) Groups() []string {
	return c.groups
}
