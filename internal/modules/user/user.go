package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/pkg/pagination"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

type UpdateProfileDTO struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type UpdateRoleDTO struct {
	Role string `json:"role" binding:"required"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Get(id string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) List(q pagination.Query, role string) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.Model(&models.UserModel{}).Order("created_at DESC")
	if role != "" {
		tx = tx.Where("role = ?", role)
	}
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.UserModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(id)
}

func (s *Service) UpdateRole(id string, role models.Role) (*models.UserModel, error) {
	if !role.Valid() {
		return nil, errors.New("unknown role")
	}
	res := s.db.Model(&models.UserModel{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.Get(id)
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.UserModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/users", authMW)
	g.PATCH("/me", h.updateMe)

	a := g.Group("", adminMW)
	a.GET("", h.list)
	a.GET("/:id", h.get)
	a.PATCH("/:id/role", h.updateRole)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	users, pag, err := h.svc.List(pagination.FromContext(c), c.Query("role"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, users, pag)
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) updateMe(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) updateRole(c *gin.Context) {
	var dto UpdateRoleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.UpdateRole(c.Param("id"), models.Role(dto.Role))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, user)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
