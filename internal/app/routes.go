package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/modules/advisor"
	"github.com/gradflow/core/internal/modules/auth"
	"github.com/gradflow/core/internal/modules/defense"
	"github.com/gradflow/core/internal/modules/gateway"
	"github.com/gradflow/core/internal/modules/milestone"
	"github.com/gradflow/core/internal/modules/notification"
	"github.com/gradflow/core/internal/modules/project"
	"github.com/gradflow/core/internal/modules/scoring"
	"github.com/gradflow/core/internal/modules/student"
	"github.com/gradflow/core/internal/modules/user"
	pkgredis "github.com/gradflow/core/internal/pkg/redis"
	"github.com/gradflow/core/internal/pkg/response"
)

var startTime = time.Now()

func (a *App) registerRoutes(rc *pkgredis.Client, bridge *gateway.RedisBridge) {
	r := a.router
	db := a.db

	authMW := middleware.Auth(db)
	optionalMW := middleware.OptionalAuth(db)
	adminMW := middleware.RequireRole(db, models.RoleAdmin)
	staffMW := middleware.RequireRole(db, models.RoleAdvisor, models.RoleAdmin)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(rc.Raw()))

	appInfo := gin.H{
		"name":    "gradflow-core",
		"version": "1.0.0",
	}

	api := r.Group("/api")
	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uptime_ms": time.Since(startTime).Milliseconds()})
	})
	api.GET("/cron", authMW, adminMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	// Accounts
	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW, optionalMW)
	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW, adminMW)

	// Registry
	student.NewHandler(student.NewService(db)).RegisterRoutes(api, authMW, staffMW)
	advisor.NewHandler(advisor.NewService(db)).RegisterRoutes(api, authMW, adminMW)

	// Projects and progress
	project.NewHandler(project.NewService(db, a.notifier)).RegisterRoutes(api, authMW, staffMW)
	milestone.NewHandler(milestone.NewService(db, a.notifier)).RegisterRoutes(api, authMW, staffMW)
	scoring.NewHandler(scoring.NewService(db)).RegisterRoutes(api, authMW, staffMW)
	defense.NewHandler(defense.NewService(db, a.notifier)).RegisterRoutes(api, authMW, staffMW)

	// Notifications (REST side)
	notification.NewHandler(a.notifier).RegisterRoutes(api, authMW, adminMW)

	// Realtime gateway. Token validation on the socket path decodes the
	// JWT and confirms the account still exists; failures downgrade the
	// connection to anonymous instead of rejecting the handshake.
	validate := gateway.NewTokenValidator(gateway.DBUserLookup(db))
	var checkOrigin func(r *http.Request) bool
	if len(a.cfg.AllowedOrigins) > 0 && !a.cfg.IsDev() {
		patterns := a.cfg.AllowedOrigins
		checkOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	}
	gw := gateway.NewHandler(validate, bridge, a.notifier, a.logger, checkOrigin)
	gw.RegisterRoutes(&r.RouterGroup)
}
