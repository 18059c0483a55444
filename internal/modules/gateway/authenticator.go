package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gradflow/core/internal/models"
	jwtpkg "github.com/gradflow/core/internal/pkg/jwt"
	"gorm.io/gorm"
)

// ConnRequest carries per-connection state through the acceptance pipeline.
type ConnRequest struct {
	HTTP      *http.Request
	Principal Principal
}

// Stage is one step of the connection acceptance pipeline. Stages must
// always delegate onward: policy failures downgrade state (an anonymous
// principal) instead of dropping the chain, so the handshake itself never
// fails inside a stage.
type Stage interface {
	Handle(c *ConnRequest, next func())
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(c *ConnRequest, next func())

func (f StageFunc) Handle(c *ConnRequest, next func()) { f(c, next) }

// Chain composes an ordered stage list into a single driver ending in final.
func Chain(stages []Stage, final func(*ConnRequest)) func(*ConnRequest) {
	return func(c *ConnRequest) {
		var run func(i int)
		run = func(i int) {
			if i >= len(stages) {
				final(c)
				return
			}
			stages[i].Handle(c, func() { run(i + 1) })
		}
		run(0)
	}
}

// TokenValidator resolves a bearer token to a Principal. Every failure mode
// (malformed, expired, bad signature, unknown user, missing token) resolves
// to the anonymous principal; it never returns an error to the transport.
type TokenValidator func(ctx context.Context, token string) Principal

// UserLookup resolves a user id against the accounts store.
type UserLookup func(ctx context.Context, userID string) (*models.UserModel, error)

// DBUserLookup resolves user ids through gorm.
func DBUserLookup(db *gorm.DB) UserLookup {
	return func(ctx context.Context, userID string) (*models.UserModel, error) {
		var user models.UserModel
		if err := db.WithContext(ctx).Select("id, role").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &user, nil
	}
}

// NewTokenValidator builds a validator that parses the JWT and resolves the
// subject against the user store. The lookup is the only side effect.
func NewTokenValidator(lookup UserLookup) TokenValidator {
	return func(ctx context.Context, token string) Principal {
		token = normalizeToken(token)
		if token == "" {
			return Anonymous
		}
		claims, err := jwtpkg.Parse(token)
		if err != nil {
			return Anonymous
		}
		user, err := lookup(ctx, claims.UserID)
		if err != nil || user == nil {
			return Anonymous
		}
		return Principal{UserID: user.ID, Role: user.Role}
	}
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// Authenticator returns the stage that authenticates a connection attempt:
// credential from the query string first, then the Authorization header,
// validated exactly once, resolved principal attached to the request. It
// always delegates onward, attaching the anonymous principal on failure;
// rejecting anonymous access is the consumer's concern, not this stage's.
func Authenticator(validate TokenValidator) Stage {
	return StageFunc(func(c *ConnRequest, next func()) {
		token := c.HTTP.URL.Query().Get("token")
		if token == "" {
			token = c.HTTP.Header.Get("Authorization")
		}
		c.Principal = validate(c.HTTP.Context(), token)
		next()
	})
}
