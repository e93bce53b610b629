package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/VipuDevAI/Prashnakosh-sub002/api/swagger"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/handler"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/repository"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/cache"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/config"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/database"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/jobs"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/logger"
	corsmiddleware "github.com/VipuDevAI/Prashnakosh-sub002/pkg/middleware/cors"
	reqidmiddleware "github.com/VipuDevAI/Prashnakosh-sub002/pkg/middleware/requestid"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/storage"
)

// @title Prashnakosh API
// @version 1.0.0
// @description Multi-tenant exam paper workflow for schools
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	frameworkRepo := repository.NewExamFrameworkRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	blueprintRepo := repository.NewBlueprintRepository(db)
	paperRepo := repository.NewTestPaperRepository(db)
	auditRepo := repository.NewExamAuditRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	files, err := storage.NewLocalStorage(cfg.Papers.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to prepare file storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Papers.SignedURLSecret, cfg.Papers.SignedURLTTL)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, tenantRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	tenantSvc := service.NewTenantService(tenantRepo, logr)
	userSvc := service.NewUserService(userRepo, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, logr)
	frameworkSvc := service.NewFrameworkService(frameworkRepo, yearRepo, tenantRepo, logr)
	questionSvc := service.NewQuestionService(questionRepo, logr)
	policySvc := service.NewPolicyService(blueprintRepo, logr)
	blueprintSvc := service.NewBlueprintService(blueprintRepo, yearRepo, policySvc, auditRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	paperSvc := service.NewPaperService(paperRepo, blueprintRepo, auditRepo, policySvc, logr,
		service.WithPaperNotifier(notificationSvc),
		service.WithPaperCacheInvalidator(cacheRepo),
		service.WithPaperMetrics(metricsSvc),
	)
	attemptSvc := service.NewAttemptService(attemptRepo, paperRepo, questionRepo, logr,
		service.WithAttemptProgressCache(cacheRepo),
		service.WithAttemptProgressTTL(cfg.Attempts.ProgressCacheTTL),
	)
	dashboardSvc := service.NewDashboardService(dashboardRepo, auditRepo, logr,
		service.WithDashboardCache(cacheRepo),
		service.WithDashboardCacheTTL(cfg.Dashboard.CacheTTL),
		service.WithDashboardMetrics(metricsSvc),
	)
	exportSvc := service.NewExportService(paperRepo, attemptRepo, questionRepo, frameworkRepo, files, signer, logr)
	referenceSvc := service.NewReferenceService(referenceRepo, tenantRepo, files, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationQueue := jobs.NewQueue("notifications", notificationSvc.HandlePaperEvent, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		Logger:     logr,
	})
	notificationSvc.AttachQueue(notificationQueue)
	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()

	buildQueue := jobs.NewQueue("paper-builds", exportSvc.HandlePaperBuild, jobs.QueueConfig{
		Workers:    cfg.Papers.WorkerConcurrency,
		MaxRetries: cfg.Papers.WorkerRetries,
		Logger:     logr,
	})
	exportSvc.AttachQueue(buildQueue)
	buildQueue.Start(ctx)
	defer buildQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Papers.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := files.CleanupOlderThan(cfg.Papers.SignedURLTTL)
				if err != nil {
					sugar.Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(deleted) > 0 {
					sugar.Infow("export cleanup removed stale files", "count", len(deleted))
				}
			}
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Tenants:       handler.NewTenantHandler(tenantSvc),
		AcademicYears: handler.NewAcademicYearHandler(yearSvc),
		Users:         handler.NewUserHandler(userSvc),
		Questions:     handler.NewQuestionHandler(questionSvc),
		Frameworks:    handler.NewFrameworkHandler(frameworkSvc),
		Blueprints:    handler.NewBlueprintHandler(blueprintSvc, policySvc),
		Papers:        handler.NewPaperHandler(paperSvc),
		Attempts:      handler.NewAttemptHandler(attemptSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		References:    handler.NewReferenceHandler(referenceSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Dashboards:    handler.NewDashboardHandler(dashboardSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}

	handler.RegisterRoutes(r, handlers, handler.RouterDeps{
		APIPrefix: cfg.APIPrefix,
		Auth:      authSvc,
		Metrics:   metricsSvc,
		AuditRepo: userRepo,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
}
