package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gradflow/core/internal/config"
	"github.com/gradflow/core/internal/database"
	"github.com/gradflow/core/internal/middleware"
	"github.com/gradflow/core/internal/modules/gateway"
	"github.com/gradflow/core/internal/modules/notification"
	"github.com/gradflow/core/internal/pkg/cluster"
	pkgcron "github.com/gradflow/core/internal/pkg/cron"
	"github.com/gradflow/core/internal/pkg/mail"
	pkgredis "github.com/gradflow/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	layer    gateway.ChannelLayer
	notifier *notification.Service
	mailer   *mail.Sender
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → realtime → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	ctx, cancel := context.WithCancel(context.Background())

	// Realtime plumbing. The redis bridge fans local group sends out to
	// every other instance.
	local := gateway.NewLocalLayer()
	bridge := gateway.NewRedisBridge(local, rc, logger)
	go bridge.Run(ctx)

	publisher := gateway.NewPublisher(bridge, logger)
	notifier := notification.NewService(db, publisher)
	mailer := mail.New(mail.Config{
		Enable: cfg.Mail.Enable,
		Host:   cfg.Mail.Host,
		Port:   cfg.Mail.Port,
		User:   cfg.Mail.User,
		Pass:   cfg.Mail.Pass,
		From:   cfg.Mail.From,
	})

	sched := pkgcron.New()
	if cluster.ShouldRunCron() {
		registerCronJobs(sched, db, notifier, mailer, logger)
		go sched.Start(ctx)
	}

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		layer:    bridge,
		notifier: notifier,
		mailer:   mailer,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
	}
	app.registerRoutes(rc, bridge)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
