package scoring

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateScoreDTO struct {
	ProjectID string  `json:"project_id" binding:"required"`
	Criterion string  `json:"criterion"  binding:"required"`
	Score     float64 `json:"score"      binding:"min=0,max=100"`
	Weight    int     `json:"weight"`
	Comment   string  `json:"comment"`
}

type UpdateScoreDTO struct {
	Score   *float64 `json:"score"`
	Comment *string  `json:"comment"`
}

// Summary aggregates a project's scores into a weighted total.
type Summary struct {
	ProjectID string              `json:"project_id"`
	Scores    []models.ScoreModel `json:"scores"`
	Average   float64             `json:"average"`
	Weighted  float64             `json:"weighted"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Create records one criterion score. The grader is the caller; the unique
// index rejects a second score for the same project, grader and criterion.
func (s *Service) Create(graderID string, dto *CreateScoreDTO) (*models.ScoreModel, error) {
	var count int64
	if err := s.db.Model(&models.ProjectModel{}).Where("id = ?", dto.ProjectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	score := models.ScoreModel{
		ProjectID: dto.ProjectID,
		GraderID:  graderID,
		Criterion: strings.TrimSpace(dto.Criterion),
		Score:     dto.Score,
		Weight:    dto.Weight,
		Comment:   dto.Comment,
	}
	if err := s.db.Create(&score).Error; err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *Service) Get(id string) (*models.ScoreModel, error) {
	var score models.ScoreModel
	if err := s.db.First(&score, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &score, nil
}

// Summarize returns all scores of a project plus plain and weighted means.
func (s *Service) Summarize(projectID string) (*Summary, error) {
	var scores []models.ScoreModel
	err := s.db.Where("project_id = ?", projectID).Order("criterion ASC, created_at ASC").Find(&scores).Error
	if err != nil {
		return nil, err
	}

	sum := Summary{ProjectID: projectID, Scores: scores}
	if len(scores) == 0 {
		return &sum, nil
	}

	var total, weightedTotal float64
	var weightSum int
	for _, sc := range scores {
		total += sc.Score
		weightedTotal += sc.Score * float64(sc.Weight)
		weightSum += sc.Weight
	}
	sum.Average = total / float64(len(scores))
	if weightSum > 0 {
		sum.Weighted = weightedTotal / float64(weightSum)
	} else {
		sum.Weighted = sum.Average
	}
	return &sum, nil
}

// Update lets the original grader or an admin amend a score entry.
func (s *Service) Update(id, callerID string, admin bool, dto *UpdateScoreDTO) (*models.ScoreModel, error) {
	score, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !admin && score.GraderID != callerID {
		return nil, errNotGrader
	}

	updates := map[string]interface{}{}
	if dto.Score != nil {
		updates["score"] = *dto.Score
	}
	if dto.Comment != nil {
		updates["comment"] = *dto.Comment
	}
	if len(updates) > 0 {
		if err := s.db.Model(score).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(id)
}

func (s *Service) Delete(id, callerID string, admin bool) error {
	score, err := s.Get(id)
	if err != nil {
		return err
	}
	if !admin && score.GraderID != callerID {
		return errNotGrader
	}
	return s.db.Delete(score).Error
}

var errNotGrader = errors.New("only the original grader may modify this score")

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	rg.GET("/projects/:id/scores", authMW, h.summarize)

	g := rg.Group("/scores", authMW, staffMW)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateScoreDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	score, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFoundMsg(c, "project not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		response.Conflict(c, "criterion already scored by this grader")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Created(c, score)
	}
}

func (h *Handler) get(c *gin.Context) {
	score, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, score)
}

func (h *Handler) summarize(c *gin.Context) {
	sum, err := h.svc.Summarize(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, sum)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateScoreDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	score, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), middleware.IsAdmin(c), &dto)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case errors.Is(err, errNotGrader):
		response.ForbiddenMsg(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, score)
	}
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c), middleware.IsAdmin(c))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case errors.Is(err, errNotGrader):
		response.ForbiddenMsg(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.NoContent(c)
	}
}
