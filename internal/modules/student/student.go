package student

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateStudentDTO struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"           binding:"required"`
	StudentNumber string `json:"student_number" binding:"required"`
	Email         string `json:"email"`
	CohortYear    int    `json:"cohort_year"`
	Major         string `json:"major"`
}

type UpdateStudentDTO struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	CohortYear *int    `json:"cohort_year"`
	Major      *string `json:"major"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Create(dto *CreateStudentDTO) (*models.StudentModel, error) {
	student := models.StudentModel{
		UserID:        dto.UserID,
		Name:          strings.TrimSpace(dto.Name),
		StudentNumber: strings.TrimSpace(dto.StudentNumber),
		Email:         dto.Email,
		CohortYear:    dto.CohortYear,
		Major:         dto.Major,
	}
	if err := s.db.Create(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *Service) Get(id string) (*models.StudentModel, error) {
	var student models.StudentModel
	if err := s.db.First(&student, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *Service) List(q pagination.Query, cohort int, search string) ([]models.StudentModel, response.Pagination, error) {
	tx := s.db.Model(&models.StudentModel{}).Order("student_number ASC")
	if cohort > 0 {
		tx = tx.Where("cohort_year = ?", cohort)
	}
	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR student_number LIKE ?", like, like)
	}
	var students []models.StudentModel
	pag, err := pagination.Paginate(tx, q, &students)
	return students, pag, err
}

func (s *Service) Update(id string, dto *UpdateStudentDTO) (*models.StudentModel, error) {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if dto.CohortYear != nil {
		updates["cohort_year"] = *dto.CohortYear
	}
	if dto.Major != nil {
		updates["major"] = *dto.Major
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.StudentModel{}).Where("id = ?", id).Updates(updates)
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
	return s.db.Delete(&models.StudentModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	g := rg.Group("/students", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", staffMW)
	a.POST("", h.create)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateStudentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	student, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.Conflict(c, "student number already registered")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, student)
}

func (h *Handler) list(c *gin.Context) {
	cohort, _ := strconv.Atoi(c.Query("cohort_year"))
	students, pag, err := h.svc.List(pagination.FromContext(c), cohort, c.Query("search"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, students, pag)
}

func (h *Handler) get(c *gin.Context) {
	student, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, student)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateStudentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	student, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, student)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
