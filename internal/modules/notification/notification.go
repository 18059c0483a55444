package notification

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/modules/gateway"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	errNotOwner = errors.New("notification does not belong to caller")
	errNotFound = errors.New("notification not found")
)

type CreateNotificationDTO struct {
	Title         string `json:"title"          binding:"required"`
	Message       string `json:"message"        binding:"required"`
	Type          string `json:"type"`
	Priority      string `json:"priority"`
	RecipientType string `json:"recipient_type" binding:"required"`
	RecipientID   string `json:"recipient_id"`
	ActionURL     string `json:"action_url"`
	ActionText    string `json:"action_text"`
}

// Service persists notification records and pushes them through the
// realtime publisher after commit.
type Service struct {
	db        *gorm.DB
	publisher *gateway.Publisher
}

func NewService(db *gorm.DB, publisher *gateway.Publisher) *Service {
	return &Service{db: db, publisher: publisher}
}

// Create validates the addressing descriptor, persists the record, then
// hands it to the publisher. The descriptor is fixed at creation.
func (s *Service) Create(ctx context.Context, dto *CreateNotificationDTO) (*models.NotificationModel, error) {
	rt := models.RecipientType(dto.RecipientType)
	if !rt.Valid() {
		return nil, errors.New("recipient_type must be one of all, role, user")
	}
	if rt != models.RecipientAll && dto.RecipientID == "" {
		return nil, errors.New("recipient_id is required for role and user addressing")
	}

	n := models.NotificationModel{
		Title:         dto.Title,
		Message:       dto.Message,
		Type:          orDefault(dto.Type, "info"),
		Priority:      orDefault(dto.Priority, "normal"),
		RecipientType: rt,
		RecipientID:   dto.RecipientID,
		ActionURL:     dto.ActionURL,
		ActionText:    dto.ActionText,
	}
	if rt == models.RecipientAll {
		n.RecipientID = ""
	}
	if err := s.db.Create(&n).Error; err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, &n)
	return &n, nil
}

// Notify is the programmatic entry point used by the business modules
// (milestones, defenses, project status changes).
func (s *Service) Notify(ctx context.Context, n models.NotificationModel) error {
	if !n.RecipientType.Valid() {
		n.RecipientType = models.RecipientUser
	}
	if n.Type == "" {
		n.Type = "info"
	}
	if n.Priority == "" {
		n.Priority = "normal"
	}
	if err := s.db.Create(&n).Error; err != nil {
		return err
	}
	s.publisher.Publish(ctx, &n)
	return nil
}

// visibleTo scopes a query to the records addressed to the caller: their
// direct notifications, their role's broadcasts and global broadcasts.
func (s *Service) visibleTo(userID string, role models.Role) *gorm.DB {
	return s.db.Model(&models.NotificationModel{}).Where(
		"(recipient_type = ? AND recipient_id = ?) OR (recipient_type = ? AND recipient_id = ?) OR recipient_type = ?",
		models.RecipientUser, userID,
		models.RecipientRole, string(role),
		models.RecipientAll,
	)
}

// ListFor returns the caller's notifications, newest first.
func (s *Service) ListFor(q pagination.Query, userID string, role models.Role, unreadOnly bool) ([]models.NotificationModel, response.Pagination, error) {
	tx := s.visibleTo(userID, role).Order("created_at DESC")
	if unreadOnly {
		tx = tx.Where("`read` = ?", false)
	}
	var items []models.NotificationModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// UnreadCount returns the caller's number of unread notifications.
func (s *Service) UnreadCount(userID string, role models.Role) (int64, error) {
	var count int64
	err := s.visibleTo(userID, role).Where("`read` = ?", false).Count(&count).Error
	return count, err
}

// markRead flips the read flag. Direct notifications may be marked by their
// owner or an admin; broadcast records only by an admin.
func (s *Service) markRead(userID, id string, admin bool) error {
	var n models.NotificationModel
	if err := s.db.First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotFound
		}
		return err
	}

	if !admin {
		if n.RecipientType != models.RecipientUser || n.RecipientID != userID {
			return errNotOwner
		}
	}
	if n.Read {
		return nil
	}

	now := time.Now()
	return s.db.Model(&n).Updates(map[string]interface{}{
		"read":    true,
		"read_at": &now,
	}).Error
}

// MarkAllRead marks every direct unread notification of the caller as read.
func (s *Service) MarkAllRead(userID string) error {
	now := time.Now()
	return s.db.Model(&models.NotificationModel{}).
		Where("recipient_type = ? AND recipient_id = ? AND `read` = ?", models.RecipientUser, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now}).Error
}

// Delete removes a notification record (admin only, enforced by routing).
func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.NotificationModel{}, "id = ?", id).Error
}

// ListUnread implements gateway.ActionHandler.
func (s *Service) ListUnread(ctx context.Context, p gateway.Principal) ([]models.NotificationModel, error) {
	var items []models.NotificationModel
	err := s.visibleTo(p.UserID, p.Role).WithContext(ctx).
		Where("`read` = ?", false).
		Order("created_at DESC").
		Limit(50).
		Find(&items).Error
	return items, err
}

// MarkRead implements gateway.ActionHandler.
func (s *Service) MarkRead(ctx context.Context, p gateway.Principal, notificationID string) error {
	return s.markRead(p.UserID, notificationID, p.Role == models.RoleAdmin)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)
	g.GET("", h.list)
	g.GET("/unread_count", h.unreadCount)
	g.POST("/:id/read", h.markRead)
	g.POST("/read_all", h.markAllRead)

	a := g.Group("", adminMW)
	a.POST("", h.create)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	unreadOnly := c.Query("unread") == "true"
	items, pag, err := h.svc.ListFor(q, middleware.CurrentUserID(c), middleware.CurrentRole(c), unreadOnly)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) unreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(middleware.CurrentUserID(c), middleware.CurrentRole(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"count": count})
}

func (h *Handler) markRead(c *gin.Context) {
	err := h.svc.markRead(middleware.CurrentUserID(c), c.Param("id"), middleware.IsAdmin(c))
	switch {
	case errors.Is(err, errNotFound):
		response.NotFound(c)
	case errors.Is(err, errNotOwner):
		response.Forbidden(c)
	case err != nil:
		response.InternalError(c, err)
	default:
		response.NoContent(c)
	}
}

func (h *Handler) markAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(middleware.CurrentUserID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateNotificationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, n)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
