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
	"go.uber.org/zap"

	_ "github.com/avesta-labs/lms-content-api/api/swagger"
	"github.com/avesta-labs/lms-content-api/internal/handler"
	"github.com/avesta-labs/lms-content-api/internal/middleware"
	"github.com/avesta-labs/lms-content-api/internal/models"
	"github.com/avesta-labs/lms-content-api/internal/repository"
	"github.com/avesta-labs/lms-content-api/internal/service"
	"github.com/avesta-labs/lms-content-api/pkg/cache"
	"github.com/avesta-labs/lms-content-api/pkg/config"
	"github.com/avesta-labs/lms-content-api/pkg/database"
	"github.com/avesta-labs/lms-content-api/pkg/jobs"
	"github.com/avesta-labs/lms-content-api/pkg/logger"
	corsmiddleware "github.com/avesta-labs/lms-content-api/pkg/middleware/cors"
	reqidmiddleware "github.com/avesta-labs/lms-content-api/pkg/middleware/requestid"
	"github.com/avesta-labs/lms-content-api/pkg/storage"
)

// @title LMS Content API
// @version 1.0.0
// @description Course catalog, assignment and unlock resolution service
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	catalogRepo := repository.NewCatalogRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	catalogCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)
	resolverCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Resolver.CacheTTL, logr, cfg.Resolver.CacheEnabled)

	catalogSvc := service.NewCatalogService(catalogRepo, catalogCache, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, overrideRepo, catalogSvc, resolverCache, validate, logr)
	resolverSvc := service.NewResolverService(assignmentRepo, overrideRepo, completionRepo, catalogSvc, resolverCache, metricsSvc, logr)
	completionSvc := service.NewCompletionService(completionRepo, assignmentRepo, resolverCache, validate, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(exportJobRepo, resolverSvc, store, signer, validate, logr)
		exportQueue = jobs.NewQueue("exports", exportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.AttachQueue(exportQueue)
		exportQueue.Start(shutdownCtx)
		defer exportQueue.Stop()

		go cleanupExports(shutdownCtx, store, cfg.Exports, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	resolverHandler := handler.NewResolverHandler(resolverSvc)
	completionHandler := handler.NewCompletionHandler(completionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		api.GET("/exports/:jobId/download", exportHandler.Download)

		staffExports := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
		staffExports.POST("/classes/:classId/assignments/:assignmentId/exports", exportHandler.Request)
		staffExports.GET("/exports/:jobId", exportHandler.GetJob)
	}

	authed := api.Group("", middleware.JWT(authSvc))

	catalog := authed.Group("/catalog")
	catalog.GET("/courses", catalogHandler.Tree)
	catalog.GET("/courses/:courseId", catalogHandler.GetCourse)

	catalogAdmin := catalog.Group("", middleware.RequireRoles(models.RoleAdmin))
	catalogAdmin.POST("/courses", catalogHandler.CreateCourse)
	catalogAdmin.PUT("/courses/:courseId", catalogHandler.UpdateCourse)
	catalogAdmin.POST("/courses/:courseId/modules", catalogHandler.AddModule)
	catalogAdmin.POST("/modules/:moduleId/sessions", catalogHandler.AddSession)
	catalogAdmin.POST("/sessions/:sessionId/content", catalogHandler.AddContentItem)

	classes := authed.Group("/classes/:classId")
	classes.GET("/courses", resolverHandler.ClassCourses)
	classes.GET("/assignments/:assignmentId/view", resolverHandler.StudentView)

	staff := classes.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	staff.POST("/assignments", assignmentHandler.Assign)
	staff.GET("/assignments/:assignmentId/selection", assignmentHandler.GetSelection)
	staff.PUT("/assignments/:assignmentId/selection", assignmentHandler.ReplaceSelection)
	staff.DELETE("/assignments/:assignmentId", assignmentHandler.Remove)
	staff.PATCH("/module-overrides/:overrideId", assignmentHandler.ToggleModule)
	staff.PATCH("/session-overrides/:overrideId", assignmentHandler.ToggleSession)
	staff.GET("/assignments/:assignmentId/management-view", resolverHandler.ManagementView)

	authed.GET("/assignments", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.List)
	authed.POST("/students/:studentId/progress", middleware.RBAC("SELF"), completionHandler.RecordProgress)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-shutdownCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

// cleanupExports periodically removes rendered files whose signed links
// have already expired.
func cleanupExports(ctx context.Context, store *storage.LocalStorage, cfg config.ExportsConfig, logr *zap.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(cfg.SignedURLTTL)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("removed expired export files", "count", len(removed))
			}
		}
	}
}
