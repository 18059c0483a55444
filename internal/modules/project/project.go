package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/modules/notification"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	errBadTransition = errors.New("status transition not allowed")
	errAdvisorFull   = errors.New("advisor is at capacity")
)

// transitions is the forward-only project lifecycle.
var transitions = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectProposed:   {models.ProjectApproved},
	models.ProjectApproved:   {models.ProjectInProgress},
	models.ProjectInProgress: {models.ProjectSubmitted},
	models.ProjectSubmitted:  {models.ProjectDefended},
}

func canTransition(from, to models.ProjectStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type CreateProjectDTO struct {
	Title        string   `json:"title"     binding:"required"`
	Abstract     string   `json:"abstract"`
	StudentID    string   `json:"student_id" binding:"required"`
	AdvisorID    string   `json:"advisor_id"`
	AcademicYear string   `json:"academic_year"`
	Tags         []string `json:"tags"`
}

type UpdateProjectDTO struct {
	Title    *string   `json:"title"`
	Abstract *string   `json:"abstract"`
	Tags     *[]string `json:"tags"`
}

type TransitionDTO struct {
	Status string `json:"status" binding:"required"`
}

type AssignAdvisorDTO struct {
	AdvisorID string `json:"advisor_id" binding:"required"`
}

type Service struct {
	db       *gorm.DB
	notifier *notification.Service
}

func NewService(db *gorm.DB, notifier *notification.Service) *Service {
	return &Service{db: db, notifier: notifier}
}

func (s *Service) Create(dto *CreateProjectDTO) (*models.ProjectModel, error) {
	project := models.ProjectModel{
		Title:        strings.TrimSpace(dto.Title),
		Abstract:     dto.Abstract,
		StudentID:    dto.StudentID,
		AdvisorID:    dto.AdvisorID,
		AcademicYear: dto.AcademicYear,
		Status:       models.ProjectProposed,
		Tags:         dto.Tags,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *Service) Get(id string) (*models.ProjectModel, error) {
	var project models.ProjectModel
	err := s.db.Preload("Student").Preload("Advisor").First(&project, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

type ListFilter struct {
	Status       string
	StudentID    string
	AdvisorID    string
	AcademicYear string
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.ProjectModel, response.Pagination, error) {
	tx := s.db.Model(&models.ProjectModel{}).
		Preload("Student").Preload("Advisor").
		Order("created_at DESC")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.StudentID != "" {
		tx = tx.Where("student_id = ?", f.StudentID)
	}
	if f.AdvisorID != "" {
		tx = tx.Where("advisor_id = ?", f.AdvisorID)
	}
	if f.AcademicYear != "" {
		tx = tx.Where("academic_year = ?", f.AcademicYear)
	}
	var projects []models.ProjectModel
	pag, err := pagination.Paginate(tx, q, &projects)
	return projects, pag, err
}

func (s *Service) Update(id string, dto *UpdateProjectDTO) (*models.ProjectModel, error) {
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Abstract != nil {
		updates["abstract"] = *dto.Abstract
	}
	if dto.Tags != nil {
		updates["tags"] = models.StringArray(*dto.Tags)
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.ProjectModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return s.Get(id)
}

// Transition advances the project lifecycle one step forward and notifies
// the student whose project changed state.
func (s *Service) Transition(ctx context.Context, id string, to models.ProjectStatus) (*models.ProjectModel, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q", to)
	}
	project, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !canTransition(project.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", errBadTransition, project.Status, to)
	}
	if err := s.db.Model(project).Update("status", to).Error; err != nil {
		return nil, err
	}
	project.Status = to

	s.notifyStatus(ctx, project, to)
	return project, nil
}

func (s *Service) notifyStatus(ctx context.Context, p *models.ProjectModel, to models.ProjectStatus) {
	if s.notifier == nil || p.Student == nil || p.Student.UserID == "" {
		return
	}
	var title, msg string
	switch to {
	case models.ProjectApproved:
		title = "Project approved"
		msg = fmt.Sprintf("Your project %q has been approved.", p.Title)
	case models.ProjectDefended:
		title = "Project defended"
		msg = fmt.Sprintf("Your project %q is now marked as defended. Congratulations!", p.Title)
	default:
		title = "Project status updated"
		msg = fmt.Sprintf("Your project %q moved to status %s.", p.Title, to)
	}
	_ = s.notifier.Notify(ctx, models.NotificationModel{
		Title:         title,
		Message:       msg,
		Type:          "project",
		RecipientType: models.RecipientUser,
		RecipientID:   p.Student.UserID,
		ActionURL:     "/projects/" + p.ID,
		ActionText:    "View project",
	})
}

// AssignAdvisor sets the supervising advisor after a capacity check.
func (s *Service) AssignAdvisor(ctx context.Context, projectID, advisorID string) (*models.ProjectModel, error) {
	var advisor models.AdvisorModel
	if err := s.db.First(&advisor, "id = ?", advisorID).Error; err != nil {
		return nil, err
	}

	var active int64
	err := s.db.Model(&models.ProjectModel{}).
		Where("advisor_id = ? AND status <> ? AND id <> ?", advisorID, models.ProjectDefended, projectID).
		Count(&active).Error
	if err != nil {
		return nil, err
	}
	if active >= int64(advisor.Capacity) {
		return nil, errAdvisorFull
	}

	res := s.db.Model(&models.ProjectModel{}).Where("id = ?", projectID).Update("advisor_id", advisorID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && advisor.UserID != "" {
		_ = s.notifier.Notify(ctx, models.NotificationModel{
			Title:         "New project assignment",
			Message:       fmt.Sprintf("You have been assigned as advisor for %q.", project.Title),
			Type:          "project",
			RecipientType: models.RecipientUser,
			RecipientID:   advisor.UserID,
			ActionURL:     "/projects/" + project.ID,
			ActionText:    "View project",
		})
	}
	return project, nil
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.ProjectModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	g := rg.Group("/projects", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)

	a := g.Group("", staffMW)
	a.POST("/:id/transition", h.transition)
	a.POST("/:id/advisor", h.assignAdvisor)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	project, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, project)
}

func (h *Handler) list(c *gin.Context) {
	f := ListFilter{
		Status:       c.Query("status"),
		StudentID:    c.Query("student_id"),
		AdvisorID:    c.Query("advisor_id"),
		AcademicYear: c.Query("academic_year"),
	}
	projects, pag, err := h.svc.List(pagination.FromContext(c), f)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, projects, pag)
}

func (h *Handler) get(c *gin.Context) {
	project, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, project)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	project, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, project)
}

func (h *Handler) transition(c *gin.Context) {
	var dto TransitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	project, err := h.svc.Transition(c.Request.Context(), c.Param("id"), models.ProjectStatus(dto.Status))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case errors.Is(err, errBadTransition):
		response.UnprocessableEntity(c, err.Error())
	case err != nil:
		response.BadRequest(c, err.Error())
	default:
		response.OK(c, project)
	}
}

func (h *Handler) assignAdvisor(c *gin.Context) {
	var dto AssignAdvisorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	project, err := h.svc.AssignAdvisor(c.Request.Context(), c.Param("id"), dto.AdvisorID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case errors.Is(err, errAdvisorFull):
		response.Conflict(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, project)
	}
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
