package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/school-crm-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-crm-api/internal/middleware"
	"github.com/noah-isme/school-crm-api/internal/repository"
	"github.com/noah-isme/school-crm-api/internal/service"
	"github.com/noah-isme/school-crm-api/pkg/cache"
	"github.com/noah-isme/school-crm-api/pkg/config"
	"github.com/noah-isme/school-crm-api/pkg/database"
	"github.com/noah-isme/school-crm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-crm-api/pkg/middleware/requestid"
)

// @title School CRM API
// @version 1.0.0
// @description School administration backend: timetable, attendance, grades and reports
// @BasePath /api/v1
// @schemes http

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
	defer db.Close() //nolint:errcheck

	// Reports stay served without caching when Redis is unreachable.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	bellRepo := repository.NewBellRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	classService := service.NewClassService(classRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	bellService := service.NewBellService(bellRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, classRepo, validate, logr)
	scheduleService := service.NewScheduleService(slotRepo, classRepo, subjectRepo, userRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, slotRepo, validate, logr, nil)
	gradeService := service.NewGradeService(gradeRepo, studentRepo, studentRepo, subjectRepo, validate, logr)
	metricsService := service.NewMetricsService()
	reportService := service.NewReportService(classRepo, studentRepo, gradeRepo, attendanceRepo, cacheRepo, cfg.Reports.CacheTTL, metricsService, validate, logr)

	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Class:      handler.NewClassHandler(classService),
		Subject:    handler.NewSubjectHandler(subjectService),
		Bell:       handler.NewBellHandler(bellService),
		Student:    handler.NewStudentHandler(studentService),
		Schedule:   handler.NewScheduleHandler(scheduleService),
		Attendance: handler.NewAttendanceHandler(attendanceService),
		Grade:      handler.NewGradeHandler(gradeService),
		Report:     handler.NewReportHandler(reportService),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
