package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lab-booking-api/api/swagger"
	"github.com/noah-isme/lab-booking-api/internal/handler"
	"github.com/noah-isme/lab-booking-api/internal/middleware"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/internal/solver"
	"github.com/noah-isme/lab-booking-api/pkg/cache"
	"github.com/noah-isme/lab-booking-api/pkg/config"
	"github.com/noah-isme/lab-booking-api/pkg/database"
	"github.com/noah-isme/lab-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-booking-api/pkg/middleware/requestid"
)

// @title Lab Booking API
// @version 1.0.0
// @description Lab slot booking with conflict detection and solver-backed scheduling
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()

	// Repositories.
	bookingRepo := repository.NewBookingRepository(db)
	labRepo := repository.NewLabRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	bookingSvc := service.NewBookingService(bookingRepo, labRepo, sectionRepo, validate, logr, metricsSvc,
		service.BookingConfig{MaxPerDayPerUser: cfg.Booking.MaxPerDayPerUser})
	labSvc := service.NewLabService(labRepo, logr)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, timeSlotRepo, cacheRepo, validate, logr)
	exportSvc := service.NewExportService(bookingRepo, labRepo, userRepo, logr)

	builder := service.NewScheduleRequestBuilder(bookingRepo, labRepo, timeSlotRepo, availabilityRepo, logr)
	solverClient := solver.NewClient(cfg.Solver.BinaryPath, cfg.Solver.Args, cfg.Solver.Timeout, logr)
	reconciler := service.NewScheduleReconciler(bookingRepo, db, logr, metricsSvc)
	scheduleSvc := service.NewScheduleRunService(builder, solverClient, reconciler, cacheRepo, logr, metricsSvc,
		service.ScheduleRunConfig{Enabled: cfg.Solver.Enabled, RunLockTTL: cfg.Solver.RunLockTTL})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	labHandler := handler.NewLabHandler(labSvc, exportSvc)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	schedulerHandler := handler.NewSchedulerHandler(scheduleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/labs", labHandler.List)
		authed.GET("/labs/:id", labHandler.Get)
		if cfg.Exports.Enabled {
			authed.GET("/labs/:id/bookings/export", labHandler.ExportDaySheet)
		}

		authed.GET("/time-slots", timeSlotHandler.List)

		authed.GET("/bookings", bookingHandler.List)
		authed.GET("/bookings/:id", bookingHandler.Get)
		authed.POST("/bookings",
			middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), bookingHandler.Create)
		authed.PATCH("/bookings/:id/status",
			middleware.RequireRoles(models.RoleAdmin), bookingHandler.UpdateStatus)
		authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)

		authed.GET("/faculty/:id/availability",
			middleware.RBAC(string(models.RoleAdmin), "SELF"), availabilityHandler.Get)
		authed.PUT("/faculty/:id/availability",
			middleware.RBAC(string(models.RoleAdmin), "SELF"), availabilityHandler.Replace)

		authed.POST("/scheduler/run",
			middleware.RequireRoles(models.RoleAdmin), schedulerHandler.Run)

		authed.GET("/metrics",
			middleware.RequireRoles(models.RoleAdmin), metricsHandler.Prometheus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "solver_enabled", cfg.Solver.Enabled)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
