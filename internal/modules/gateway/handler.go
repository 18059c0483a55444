package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler terminates the realtime routes. Every route shares the same
// acceptance pipeline; only the joined groups differ.
type Handler struct {
	layer    ChannelLayer
	actions  ActionHandler
	logger   *zap.Logger
	upgrader websocket.Upgrader
	stages   []Stage
}

// NewHandler builds the realtime handler. checkOrigin composes in front of
// the acceptance pipeline; pass nil to accept any origin (dev).
func NewHandler(validate TokenValidator, layer ChannelLayer, actions ActionHandler, logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	h := &Handler{
		layer:   layer,
		actions: actions,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		stages: []Stage{Authenticator(validate)},
	}
	return h
}

// RegisterRoutes mounts the realtime endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ws := r.Group("/ws")
	ws.GET("/notifications/", h.notifications)
	ws.GET("/projects/:project_id/", h.project)
	ws.GET("/collaboration/:room_name/", h.collaboration)
	ws.GET("/system-health/", h.systemHealth)
}

func (h *Handler) notifications(c *gin.Context) {
	h.serve(c, func(p Principal) []string {
		return GroupsForPrincipal(p)
	})
}

func (h *Handler) project(c *gin.Context) {
	projectID := c.Param("project_id")
	h.serve(c, func(p Principal) []string {
		return append(GroupsForPrincipal(p), ProjectGroup(projectID))
	})
}

func (h *Handler) collaboration(c *gin.Context) {
	room := c.Param("room_name")
	h.serve(c, func(p Principal) []string {
		return append(GroupsForPrincipal(p), CollabGroup(room))
	})
}

func (h *Handler) systemHealth(c *gin.Context) {
	h.serve(c, func(p Principal) []string {
		return append(GroupsForPrincipal(p), GroupSystemHealth)
	})
}

// serve drives the acceptance pipeline, upgrades the socket and runs the
// connection until it closes. The handshake is accepted even for anonymous
// principals; they simply join fewer groups.
func (h *Handler) serve(c *gin.Context, groupsFor func(Principal) []string) {
	driver := Chain(h.stages, func(req *ConnRequest) {
		ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			if h.logger != nil {
				h.logger.Debug("gateway upgrade failed", zap.Error(err))
			}
			return
		}

		conn := NewConn(ws, req.Principal, groupsFor(req.Principal), h.layer, h.actions, h.logger)
		conn.Run(c.Request.Context())
	})

	driver(&ConnRequest{HTTP: c.Request})
}
