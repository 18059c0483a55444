package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gradflow/core/internal/models"
	jwtpkg "github.com/gradflow/core/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(users map[string]models.Role) UserLookup {
	return func(_ context.Context, userID string) (*models.UserModel, error) {
		role, ok := users[userID]
		if !ok {
			return nil, nil
		}
		u := &models.UserModel{Role: role}
		u.ID = userID
		return u, nil
	}
}

func TestTokenValidator(t *testing.T) {
	validate := NewTokenValidator(mapLookup(map[string]models.Role{
		"u1": models.RoleAdvisor,
	}))
	ctx := context.Background()

	t.Run("valid token resolves the principal", func(t *testing.T) {
		token, err := jwtpkg.Sign("u1", time.Hour)
		require.NoError(t, err)

		p := validate(ctx, token)
		assert.Equal(t, Principal{UserID: "u1", Role: models.RoleAdvisor}, p)
	})

	t.Run("bearer prefix is stripped", func(t *testing.T) {
		token, err := jwtpkg.Sign("u1", time.Hour)
		require.NoError(t, err)

		p := validate(ctx, "Bearer "+token)
		assert.False(t, p.IsAnonymous())
	})

	t.Run("missing token downgrades to anonymous", func(t *testing.T) {
		assert.True(t, validate(ctx, "").IsAnonymous())
		assert.True(t, validate(ctx, "   ").IsAnonymous())
	})

	t.Run("malformed token downgrades to anonymous", func(t *testing.T) {
		assert.True(t, validate(ctx, "not-a-jwt").IsAnonymous())
	})

	t.Run("expired token downgrades to anonymous", func(t *testing.T) {
		token, err := jwtpkg.Sign("u1", -time.Minute)
		require.NoError(t, err)
		assert.True(t, validate(ctx, token).IsAnonymous())
	})

	t.Run("unknown subject downgrades to anonymous", func(t *testing.T) {
		token, err := jwtpkg.Sign("ghost", time.Hour)
		require.NoError(t, err)
		assert.True(t, validate(ctx, token).IsAnonymous())
	})
}

func TestAuthenticatorStage(t *testing.T) {
	validate := NewTokenValidator(mapLookup(map[string]models.Role{
		"u1": models.RoleStudent,
	}))

	run := func(target, authHeader string) Principal {
		req := httptest.NewRequest("GET", target, nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		cr := &ConnRequest{HTTP: req}
		delegated := false
		Authenticator(validate).Handle(cr, func() { delegated = true })
		require.True(t, delegated, "the stage must always delegate onward")
		return cr.Principal
	}

	token, err := jwtpkg.Sign("u1", time.Hour)
	require.NoError(t, err)

	t.Run("query token wins", func(t *testing.T) {
		p := run("/ws/notifications/?token="+token, "")
		assert.Equal(t, "u1", p.UserID)
	})

	t.Run("falls back to the authorization header", func(t *testing.T) {
		p := run("/ws/notifications/", "Bearer "+token)
		assert.Equal(t, "u1", p.UserID)
	})

	t.Run("bad credentials still delegate, as anonymous", func(t *testing.T) {
		p := run("/ws/notifications/?token=garbage", "")
		assert.True(t, p.IsAnonymous())
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Stage {
		return StageFunc(func(c *ConnRequest, next func()) {
			order = append(order, name)
			next()
		})
	}
	driver := Chain([]Stage{mk("a"), mk("b")}, func(*ConnRequest) {
		order = append(order, "final")
	})
	driver(&ConnRequest{HTTP: httptest.NewRequest("GET", "/", nil)})

	assert.Equal(t, []string{"a", "b", "final"}, order)
}
