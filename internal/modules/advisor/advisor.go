package advisor

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateAdvisorDTO struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Title      string `json:"title"`
	Capacity   int    `json:"capacity"`
}

type UpdateAdvisorDTO struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Department *string `json:"department"`
	Title      *string `json:"title"`
	Capacity   *int    `json:"capacity"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Create(dto *CreateAdvisorDTO) (*models.AdvisorModel, error) {
	advisor := models.AdvisorModel{
		UserID:     dto.UserID,
		Name:       strings.TrimSpace(dto.Name),
		Email:      dto.Email,
		Department: dto.Department,
		Title:      dto.Title,
		Capacity:   dto.Capacity,
	}
	if advisor.Capacity <= 0 {
		advisor.Capacity = 5
	}
	if err := s.db.Create(&advisor).Error; err != nil {
		return nil, err
	}
	return &advisor, nil
}

func (s *Service) Get(id string) (*models.AdvisorModel, error) {
	var advisor models.AdvisorModel
	if err := s.db.First(&advisor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &advisor, nil
}

func (s *Service) List(q pagination.Query, department string) ([]models.AdvisorModel, response.Pagination, error) {
	tx := s.db.Model(&models.AdvisorModel{}).Order("name ASC")
	if department != "" {
		tx = tx.Where("department = ?", department)
	}
	var advisors []models.AdvisorModel
	pag, err := pagination.Paginate(tx, q, &advisors)
	return advisors, pag, err
}

// Load returns an advisor together with how many active projects they
// currently supervise, for capacity checks at assignment time.
func (s *Service) Load(id string) (*models.AdvisorModel, int64, error) {
	advisor, err := s.Get(id)
	if err != nil {
		return nil, 0, err
	}
	var active int64
	err = s.db.Model(&models.ProjectModel{}).
		Where("advisor_id = ? AND status NOT IN ?", id, []models.ProjectStatus{models.ProjectDefended}).
		Count(&active).Error
	if err != nil {
		return nil, 0, err
	}
	return advisor, active, nil
}

func (s *Service) Update(id string, dto *UpdateAdvisorDTO) (*models.AdvisorModel, error) {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if dto.Department != nil {
		updates["department"] = *dto.Department
	}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Capacity != nil {
		updates["capacity"] = *dto.Capacity
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.AdvisorModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return s.Get(id)
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.AdvisorModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/advisors", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/load", h.load)

	a := g.Group("", adminMW)
	a.POST("", h.create)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateAdvisorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	advisor, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, advisor)
}

func (h *Handler) list(c *gin.Context) {
	advisors, pag, err := h.svc.List(pagination.FromContext(c), c.Query("department"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, advisors, pag)
}

func (h *Handler) get(c *gin.Context) {
	advisor, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, advisor)
}

func (h *Handler) load(c *gin.Context) {
	advisor, active, err := h.svc.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"advisor":         advisor,
		"active_projects": active,
		"capacity":        advisor.Capacity,
		"available":       active < int64(advisor.Capacity),
	})
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateAdvisorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	advisor, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, advisor)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
