package milestone

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

type CreateMilestoneDTO struct {
	ProjectID   string    `json:"project_id" binding:"required"`
	Title       string    `json:"title"      binding:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"   binding:"required"`
	Weight      int       `json:"weight"`
}

type UpdateMilestoneDTO struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Weight      *int       `json:"weight"`
}

type Service struct {
	db       *gorm.DB
	notifier *notification.Service
}

func NewService(db *gorm.DB, notifier *notification.Service) *Service {
	return &Service{db: db, notifier: notifier}
}

func (s *Service) Create(dto *CreateMilestoneDTO) (*models.MilestoneModel, error) {
	var count int64
	if err := s.db.Model(&models.ProjectModel{}).Where("id = ?", dto.ProjectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	m := models.MilestoneModel{
		ProjectID:   dto.ProjectID,
		Title:       dto.Title,
		Description: dto.Description,
		DueDate:     dto.DueDate,
		Weight:      dto.Weight,
		Status:      models.MilestonePending,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) Get(id string) (*models.MilestoneModel, error) {
	var m models.MilestoneModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) ListByProject(q pagination.Query, projectID string) ([]models.MilestoneModel, response.Pagination, error) {
	tx := s.db.Model(&models.MilestoneModel{}).
		Where("project_id = ?", projectID).
		Order("due_date ASC")
	var items []models.MilestoneModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) Update(id string, dto *UpdateMilestoneDTO) (*models.MilestoneModel, error) {
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.DueDate != nil {
		updates["due_date"] = *dto.DueDate
	}
	if dto.Weight != nil {
		updates["weight"] = *dto.Weight
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.MilestoneModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return s.Get(id)
}

// Submit marks a milestone as handed in by the student and notifies the
// project's advisor.
func (s *Service) Submit(ctx context.Context, id string) (*models.MilestoneModel, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MilestoneCompleted {
		return nil, errors.New("milestone already completed")
	}
	if err := s.db.Model(m).Update("status", models.MilestoneSubmitted).Error; err != nil {
		return nil, err
	}
	m.Status = models.MilestoneSubmitted

	if advisorUID, title := s.projectAdvisor(m.ProjectID); advisorUID != "" && s.notifier != nil {
		_ = s.notifier.Notify(ctx, models.NotificationModel{
			Title:         "Milestone submitted",
			Message:       fmt.Sprintf("Milestone %q of project %q was submitted for review.", m.Title, title),
			Type:          "milestone",
			RecipientType: models.RecipientUser,
			RecipientID:   advisorUID,
			ActionURL:     "/projects/" + m.ProjectID,
			ActionText:    "Review",
		})
	}
	return m, nil
}

// Complete marks a milestone as accepted and notifies the student.
func (s *Service) Complete(ctx context.Context, id string) (*models.MilestoneModel, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	err = s.db.Model(m).Updates(map[string]interface{}{
		"status":       models.MilestoneCompleted,
		"completed_at": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	m.Status = models.MilestoneCompleted
	m.CompletedAt = &now

	if studentUID, title := s.projectStudent(m.ProjectID); studentUID != "" && s.notifier != nil {
		_ = s.notifier.Notify(ctx, models.NotificationModel{
			Title:         "Milestone completed",
			Message:       fmt.Sprintf("Milestone %q of project %q was accepted.", m.Title, title),
			Type:          "milestone",
			RecipientType: models.RecipientUser,
			RecipientID:   studentUID,
			ActionURL:     "/projects/" + m.ProjectID,
			ActionText:    "View project",
		})
	}
	return m, nil
}

// MarkOverdue flags every pending milestone whose due date has passed and
// notifies the affected students. Returns the number flagged. Called from
// the scheduler.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	var due []models.MilestoneModel
	err := s.db.Where("status = ? AND due_date < ?", models.MilestonePending, time.Now()).Find(&due).Error
	if err != nil {
		return 0, err
	}
	for i := range due {
		m := &due[i]
		if err := s.db.Model(m).Update("status", models.MilestoneOverdue).Error; err != nil {
			continue
		}
		if studentUID, title := s.projectStudent(m.ProjectID); studentUID != "" && s.notifier != nil {
			_ = s.notifier.Notify(ctx, models.NotificationModel{
				Title:         "Milestone overdue",
				Message:       fmt.Sprintf("Milestone %q of project %q is past its due date.", m.Title, title),
				Type:          "milestone",
				Priority:      "high",
				RecipientType: models.RecipientUser,
				RecipientID:   studentUID,
				ActionURL:     "/projects/" + m.ProjectID,
				ActionText:    "View project",
			})
		}
	}
	return len(due), nil
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.MilestoneModel{}, "id = ?", id).Error
}

// projectStudent resolves a project's student user id and project title.
func (s *Service) projectStudent(projectID string) (string, string) {
	var p models.ProjectModel
	if err := s.db.Preload("Student").First(&p, "id = ?", projectID).Error; err != nil {
		return "", ""
	}
	if p.Student == nil {
		return "", p.Title
	}
	return p.Student.UserID, p.Title
}

// projectAdvisor resolves a project's advisor user id and project title.
func (s *Service) projectAdvisor(projectID string) (string, string) {
	var p models.ProjectModel
	if err := s.db.Preload("Advisor").First(&p, "id = ?", projectID).Error; err != nil {
		return "", ""
	}
	if p.Advisor == nil {
		return "", p.Title
	}
	return p.Advisor.UserID, p.Title
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	g := rg.Group("/milestones", authMW)
	g.GET("/:id", h.get)
	g.POST("/:id/submit", h.submit)
	g.PATCH("/:id", h.update)

	rg.GET("/projects/:id/milestones", authMW, h.listByProject)

	a := g.Group("", staffMW)
	a.POST("", h.create)
	a.POST("/:id/complete", h.complete)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateMilestoneDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "project not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) listByProject(c *gin.Context) {
	items, pag, err := h.svc.ListByProject(pagination.FromContext(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	m, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateMilestoneDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) submit(c *gin.Context) {
	m, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, m)
}

func (h *Handler) complete(c *gin.Context) {
	m, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
