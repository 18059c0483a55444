package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/pkg/response"
	"github.com/gradflow/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errBadCredentials = errors.New("invalid username or password")

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Register creates a new account. Self-registration is limited to the
// student role; advisor and admin accounts are provisioned by an admin.
func (s *Service) Register(dto *RegisterDTO, byAdmin bool) (*models.UserModel, error) {
	role := models.Role(dto.Role)
	if dto.Role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, errors.New("unknown role")
	}
	if !byAdmin && role != models.RoleStudent {
		return nil, errors.New("only student accounts may self-register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.UserModel{
		Username: strings.TrimSpace(dto.Username),
		Name:     dto.Name,
		Email:    dto.Email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks credentials and issues a session-bound token.
func (s *Service) Login(dto *LoginDTO, ip, ua string) (string, *models.UserModel, error) {
	var user models.UserModel
	err := s.db.Where("username = ?", strings.TrimSpace(dto.Username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errBadCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)) != nil {
		return "", nil, errBadCredentials
	}

	token, _, err := session.Issue(s.db, &user, ip, ua, session.DefaultTTL)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	_ = s.db.Model(&user).Updates(map[string]interface{}{
		"last_login_time": &now,
		"last_login_ip":   ip,
	}).Error

	return token, &user, nil
}

// ChangePassword verifies the old password, stores the new hash and
// revokes every other session.
func (s *Service) ChangePassword(userID, keepSessionID string, dto *ChangePasswordDTO) error {
	var user models.UserModel
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.OldPassword)) != nil {
		return errBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(&user).Update("password", string(hash)).Error; err != nil {
		return err
	}
	return session.RevokeAllExcept(s.db, userID, keepSessionID)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/register", optionalMW, h.register)
	g.POST("/login", h.login)

	p := g.Group("", authMW)
	p.GET("/me", h.me)
	p.POST("/logout", h.logout)
	p.POST("/password", h.changePassword)
	p.GET("/sessions", h.sessions)
	p.DELETE("/sessions/:id", h.revokeSession)
	p.DELETE("/sessions", h.revokeOthers)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.Register(&dto, middleware.IsAdmin(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, user)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, user, err := h.svc.Login(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"token": token, "user": user})
}

func (h *Handler) me(c *gin.Context) {
	var user models.UserModel
	if err := h.svc.db.First(&user, "id = ?", middleware.CurrentUserID(c)).Error; err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, user)
}

func (h *Handler) logout(c *gin.Context) {
	sid := middleware.CurrentSessionID(c)
	if sid != "" {
		_ = session.Revoke(h.svc.db, middleware.CurrentUserID(c), sid)
	}
	response.NoContent(c)
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.svc.ChangePassword(middleware.CurrentUserID(c), middleware.CurrentSessionID(c), &dto)
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) sessions(c *gin.Context) {
	list, err := session.ListActive(h.svc.db, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"sessions": list, "current": middleware.CurrentSessionID(c)})
}

func (h *Handler) revokeSession(c *gin.Context) {
	err := session.Revoke(h.svc.db, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) revokeOthers(c *gin.Context) {
	err := session.RevokeAllExcept(h.svc.db, middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
