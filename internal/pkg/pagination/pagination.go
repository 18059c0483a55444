package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// Offset returns the SQL offset for the query.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Size
}

// Paginate runs a count + offset/limit find on tx and fills dest.
func Paginate(tx *gorm.DB, q Query, dest interface{}) (response.Pagination, error) {
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := tx.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	totalPage := int(total) / q.Size
	if int(total)%q.Size != 0 {
		totalPage++
	}

	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
