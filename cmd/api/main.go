package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/artventure/academy-server/api/swagger"
	"github.com/artventure/academy-server/internal/handler"
	"github.com/artventure/academy-server/internal/middleware"
	"github.com/artventure/academy-server/internal/models"
	"github.com/artventure/academy-server/internal/payment"
	"github.com/artventure/academy-server/internal/repository"
	"github.com/artventure/academy-server/internal/service"
	"github.com/artventure/academy-server/pkg/cache"
	"github.com/artventure/academy-server/pkg/config"
	"github.com/artventure/academy-server/pkg/database"
	"github.com/artventure/academy-server/pkg/export"
	"github.com/artventure/academy-server/pkg/jobs"
	"github.com/artventure/academy-server/pkg/logger"
	corsmiddleware "github.com/artventure/academy-server/pkg/middleware/cors"
	reqidmiddleware "github.com/artventure/academy-server/pkg/middleware/requestid"
)

// @title Artventure Academy API
// @version 1.0.0
// @description Class booking and enrollment settlement service
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	selectionSvc := service.NewSelectionService(selectionRepo, classRepo, validate, logr)
	gateway := payment.NewHTTPGateway(cfg.Gateway, logr)
	settlementSvc := service.NewSettlementService(selectionRepo, classRepo, paymentRepo, gateway, nil, cacheRepo, metricsSvc, validate, logr, cfg.Gateway.Currency)
	reconciler := service.NewReconciliationService(paymentRepo, settlementSvc, metricsSvc, logr, cfg.Settlement.ReconcileInterval, jobs.QueueConfig{
		Workers:    cfg.Settlement.WorkerConcurrency,
		MaxRetries: cfg.Settlement.WorkerRetries,
	})
	settlementSvc.SetScheduler(reconciler)
	enrollmentSvc := service.NewEnrollmentService(paymentRepo, cacheRepo, export.NewReceiptExporter(), logr, cfg.Settlement.EnrollmentCacheTTL, cfg.Gateway.Currency)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	classHandler := handler.NewClassHandler(classSvc)
	selectionHandler := handler.NewSelectionHandler(selectionSvc)
	settlementHandler := handler.NewSettlementHandler(settlementSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/register", authHandler.Register)

		api.GET("/instructors", userHandler.ListInstructors)
		api.GET("/classes", middleware.OptionalJWT(authSvc), classHandler.List)

		authed := api.Group("", middleware.JWT(authSvc))
		{
			admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
			{
				admin.GET("/users", userHandler.List)
				admin.PATCH("/users/:id/role", userHandler.PromoteRole)
				admin.PUT("/classes/:id/approve", classHandler.Approve)
				admin.PUT("/classes/:id/deny", classHandler.Deny)
			}

			instructor := authed.Group("", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin))
			{
				instructor.POST("/classes", classHandler.Create)
				instructor.GET("/classes/mine", classHandler.ListMine)
			}

			student := authed.Group("", middleware.RequireRoles(models.RoleStudent))
			{
				student.POST("/selections", selectionHandler.Create)
				student.GET("/selections", selectionHandler.List)
				student.DELETE("/selections/:id", selectionHandler.Delete)
				student.POST("/settlements", settlementHandler.Settle)
				student.GET("/enrollments", enrollmentHandler.List)
				student.GET("/enrollments/:id/receipt", enrollmentHandler.Receipt)
			}
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler.Start(rootCtx)
	defer reconciler.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
