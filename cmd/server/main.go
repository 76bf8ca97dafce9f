package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/api"
	"github.com/workstream-hq/workstream/internal/audit"
	"github.com/workstream-hq/workstream/internal/cache"
	"github.com/workstream-hq/workstream/internal/config"
	"github.com/workstream-hq/workstream/internal/db"
	"github.com/workstream-hq/workstream/internal/events"
	"github.com/workstream-hq/workstream/internal/middleware"
	"github.com/workstream-hq/workstream/internal/observ"
	"github.com/workstream-hq/workstream/internal/repository/postgres"
	"github.com/workstream-hq/workstream/internal/search"
	"github.com/workstream-hq/workstream/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no request deadline — take as long as connecting needs.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	pool := database.Pool()
	store := postgres.NewStore(pool)
	orgRepo := postgres.NewOrgStore(pool)
	userRepo := postgres.NewUserStore(pool)
	channelRepo := postgres.NewChannelStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	auditRepo := postgres.NewAuditLogStore(pool)

	// Redis is an optimization, not a dependency — without it search
	// re-filtering just does more DB lookups.
	var orgCache api.ChannelOrgResolver
	if channelOrgCache, err := cache.NewChannelOrgCache(cfg.RedisURL); err != nil {
		logger.Warn("redis unavailable, channel org cache disabled", zap.Error(err))
	} else {
		defer channelOrgCache.Close()
		orgCache = channelOrgCache
	}

	// Meilisearch is optional too: when it's absent or unhealthy the
	// search service falls back to Postgres full-text.
	var meili *search.Meili
	if cfg.MeiliURL != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		defer meili.Close()
	}
	searchSvc := search.NewService(meili, search.NewPgFTS(pool), logger)

	registry := events.NewRegistry(logger)
	recorder := audit.NewRecorder(logger)

	messageSvc := service.NewMessageService(store, channelRepo, messageRepo, recorder, registry, searchSvc, logger)
	channelSvc := service.NewChannelService(store, channelRepo, recorder, logger)

	authHandler := api.NewAuthHandler(orgRepo, userRepo, cfg.JWTSecret, logger)
	usersHandler := api.NewUsersHandler(userRepo, logger)
	channelsHandler := api.NewChannelsHandler(channelSvc, logger)
	messagesHandler := api.NewMessagesHandler(messageSvc, logger)
	searchHandler := api.NewSearchHandler(searchSvc, channelRepo, messageRepo, orgCache, logger)
	auditHandler := api.NewAuditHandler(auditRepo, logger)
	eventsHandler := api.NewEventsHandler(registry, logger)
	wsHandler := api.NewWSHandler(registry, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	// Health is public so load balancers can probe it.
	engine.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.POST("/v1/auth/signup", authHandler.Signup)
	engine.POST("/v1/auth/login", authHandler.Login)

	v1 := engine.Group("/v1")
	v1.Use(middleware.Auth(cfg.JWTSecret))

	v1.GET("/users/me", usersHandler.Me)

	v1.POST("/channels", channelsHandler.Create)
	v1.GET("/channels", channelsHandler.List)
	v1.GET("/channels/:id", channelsHandler.GetByID)

	v1.POST("/messages", messagesHandler.Create)
	v1.PATCH("/messages/:id", messagesHandler.Edit)
	v1.GET("/messages/threads/:thread_id", messagesHandler.ListThread)

	v1.GET("/search", searchHandler.Search)

	v1.GET("/events", eventsHandler.Stream)
	v1.GET("/events/ws", wsHandler.Stream)

	auditGroup := v1.Group("/audit")
	auditGroup.Use(middleware.RequireAdmin())
	auditGroup.GET("", auditHandler.List)
	auditGroup.GET("/entity/:entity_type/:entity_id", auditHandler.EntityHistory)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting workstream",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	// Give in-flight requests a window. Long-lived event streams won't
	// finish inside it; the deadline lets run() return anyway.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
