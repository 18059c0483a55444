package defense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/modules/notification"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

type ScheduleDefenseDTO struct {
	ProjectID       string    `json:"project_id"   binding:"required"`
	Room            string    `json:"room"         binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Committee       []string  `json:"committee"`
}

type UpdateDefenseDTO struct {
	Room            *string    `json:"room"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Committee       *[]string  `json:"committee"`
}

type Service struct {
	db       *gorm.DB
	notifier *notification.Service
}

func NewService(db *gorm.DB, notifier *notification.Service) *Service {
	return &Service{db: db, notifier: notifier}
}

// Schedule books a defense session for a submitted project and notifies
// the student and every committee member.
func (s *Service) Schedule(ctx context.Context, dto *ScheduleDefenseDTO) (*models.DefenseModel, error) {
	var project models.ProjectModel
	err := s.db.Preload("Student").First(&project, "id = ?", dto.ProjectID).Error
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectSubmitted {
		return nil, fmt.Errorf("project must be submitted before scheduling a defense, current status is %s", project.Status)
	}
	if dto.ScheduledAt.Before(time.Now()) {
		return nil, errors.New("scheduled_at must be in the future")
	}

	d := models.DefenseModel{
		ProjectID:       dto.ProjectID,
		Room:            dto.Room,
		ScheduledAt:     dto.ScheduledAt,
		DurationMinutes: dto.DurationMinutes,
		Committee:       dto.Committee,
		Status:          models.DefenseScheduled,
	}
	if d.DurationMinutes <= 0 {
		d.DurationMinutes = 30
	}
	if err := s.db.Create(&d).Error; err != nil {
		return nil, err
	}

	s.notifyScheduled(ctx, &d, &project)
	return &d, nil
}

func (s *Service) notifyScheduled(ctx context.Context, d *models.DefenseModel, p *models.ProjectModel) {
	if s.notifier == nil {
		return
	}
	when := d.ScheduledAt.Format("2006-01-02 15:04")
	msg := fmt.Sprintf("Defense for %q is scheduled on %s in room %s.", p.Title, when, d.Room)

	if p.Student != nil && p.Student.UserID != "" {
		_ = s.notifier.Notify(ctx, models.NotificationModel{
			Title:         "Defense scheduled",
			Message:       msg,
			Type:          "defense",
			Priority:      "high",
			RecipientType: models.RecipientUser,
			RecipientID:   p.Student.UserID,
			ActionURL:     "/defenses/" + d.ID,
			ActionText:    "View details",
		})
	}
	for _, advisorID := range d.Committee {
		var advisor models.AdvisorModel
		if err := s.db.First(&advisor, "id = ?", advisorID).Error; err != nil || advisor.UserID == "" {
			continue
		}
		_ = s.notifier.Notify(ctx, models.NotificationModel{
			Title:         "Committee assignment",
			Message:       msg,
			Type:          "defense",
			RecipientType: models.RecipientUser,
			RecipientID:   advisor.UserID,
			ActionURL:     "/defenses/" + d.ID,
			ActionText:    "View details",
		})
	}
}

func (s *Service) Get(id string) (*models.DefenseModel, error) {
	var d models.DefenseModel
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) List(q pagination.Query, status, projectID string) ([]models.DefenseModel, response.Pagination, error) {
	tx := s.db.Model(&models.DefenseModel{}).Order("scheduled_at ASC")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if projectID != "" {
		tx = tx.Where("project_id = ?", projectID)
	}
	var items []models.DefenseModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) Update(id string, dto *UpdateDefenseDTO) (*models.DefenseModel, error) {
	updates := map[string]interface{}{}
	if dto.Room != nil {
		updates["room"] = *dto.Room
	}
	if dto.ScheduledAt != nil {
		updates["scheduled_at"] = *dto.ScheduledAt
		// Rescheduling re-arms the reminder.
		updates["reminder_sent_at"] = gorm.Expr("NULL")
	}
	if dto.DurationMinutes != nil {
		updates["duration_minutes"] = *dto.DurationMinutes
	}
	if dto.Committee != nil {
		updates["committee"] = models.StringArray(*dto.Committee)
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.DefenseModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return s.Get(id)
}

// SetStatus moves a defense to completed or cancelled.
func (s *Service) SetStatus(id string, status models.DefenseStatus) (*models.DefenseModel, error) {
	if status != models.DefenseCompleted && status != models.DefenseCancelled {
		return nil, errors.New("status must be completed or cancelled")
	}
	res := s.db.Model(&models.DefenseModel{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.Get(id)
}

// UpcomingUnreminded returns scheduled defenses starting within the window
// whose reminder has not been sent yet.
func (s *Service) UpcomingUnreminded(window time.Duration) ([]models.DefenseModel, error) {
	now := time.Now()
	var items []models.DefenseModel
	err := s.db.Where(
		"status = ? AND reminder_sent_at IS NULL AND scheduled_at > ? AND scheduled_at <= ?",
		models.DefenseScheduled, now, now.Add(window),
	).Find(&items).Error
	return items, err
}

// MarkReminded stamps the reminder as sent so the scheduler never repeats it.
func (s *Service) MarkReminded(id string) error {
	now := time.Now()
	return s.db.Model(&models.DefenseModel{}).Where("id = ?", id).
		Update("reminder_sent_at", &now).Error
}

// Project loads the defense's project with student and advisor preloaded.
func (s *Service) Project(projectID string) (*models.ProjectModel, error) {
	var p models.ProjectModel
	err := s.db.Preload("Student").Preload("Advisor").First(&p, "id = ?", projectID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Notifier exposes the notification service for the reminder job.
func (s *Service) Notifier() *notification.Service { return s.notifier }

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.DefenseModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	g := rg.Group("/defenses", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", staffMW)
	a.POST("", h.schedule)
	a.PATCH("/:id", h.update)
	a.POST("/:id/status", h.setStatus)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) schedule(c *gin.Context) {
	var dto ScheduleDefenseDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.Schedule(c.Request.Context(), &dto)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFoundMsg(c, "project not found")
	case err != nil:
		response.UnprocessableEntity(c, err.Error())
	default:
		response.Created(c, d)
	}
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(pagination.FromContext(c), c.Query("status"), c.Query("project_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDefenseDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) setStatus(c *gin.Context) {
	var dto struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.SetStatus(c.Param("id"), models.DefenseStatus(dto.Status))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case err != nil:
		response.BadRequest(c, err.Error())
	default:
		response.OK(c, d)
	}
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
