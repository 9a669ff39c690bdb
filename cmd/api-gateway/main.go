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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-class-scheduler/api/swagger"
	"github.com/noah-isme/sma-class-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-class-scheduler/internal/middleware"
	"github.com/noah-isme/sma-class-scheduler/internal/repository"
	"github.com/noah-isme/sma-class-scheduler/internal/service"
	"github.com/noah-isme/sma-class-scheduler/pkg/cache"
	"github.com/noah-isme/sma-class-scheduler/pkg/config"
	"github.com/noah-isme/sma-class-scheduler/pkg/database"
	"github.com/noah-isme/sma-class-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-class-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-class-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-class-scheduler/pkg/middleware/requestid"
)

// @title SMA Class Scheduler API
// @version 0.1.0
// @description Class session scheduling: slot availability, session plans, alternative start dates and reschedules.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// the busy cache is optional; scheduling runs uncached
		logr.Sugar().Warnw("redis unavailable, busy cache disabled", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"redis":    cacheRepo.Ping,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var queue *jobs.Queue
	if cfg.Scheduling.Enabled {
		queue = registerScheduling(ctx, r.Group(cfg.APIPrefix), cfg, db, cacheRepo, metricsSvc, logr)
		defer queue.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

func registerScheduling(
	ctx context.Context,
	api *gin.RouterGroup,
	cfg *config.Config,
	db *sqlx.DB,
	cacheRepo *repository.CacheRepository,
	metricsSvc *service.MetricsService,
	logr *zap.Logger,
) *jobs.Queue {
	validate := validator.New()

	timeslotRepo := repository.NewTimeslotRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	instructorTimeslotRepo := repository.NewInstructorTimeslotRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewClassSessionRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduling.BusyCacheTTL, logr, cacheRepo.Enabled())
	instructorSvc := service.NewInstructorScheduleService(instructorTimeslotRepo, sessionRepo, cacheSvc, logr)

	queue := jobs.NewQueue("scheduling", jobs.Router{
		service.JobInvalidateBusy: instructorSvc.HandleInvalidateJob,
	}.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
		Observer:   metricsSvc.RecordJob,
	})
	queue.Start(ctx)

	blockedSvc := service.NewBlockedDayService(service.BlockedDayConfig{
		Ratio:          cfg.Scheduling.BlockedRatio,
		MinOccurrences: cfg.Scheduling.BlockedMinOccurrence,
	})
	availabilitySvc := service.NewSlotAvailabilityService(
		timeslotRepo, classRepo, instructorRepo, instructorSvc, blockedSvc,
		metricsSvc, validate, logr,
		service.SlotAvailabilityConfig{
			LockThreshold:        cfg.Scheduling.LockThreshold,
			DefaultTotalSessions: cfg.Scheduling.DefaultTotalSessions,
		},
	)
	planSvc := service.NewSessionPlanService(
		availabilitySvc, sessionRepo, classRepo, db, queue,
		metricsSvc, validate, logr,
		service.SessionPlanConfig{
			ProposalTTL:          cfg.Scheduling.ProposalTTL,
			DefaultTotalSessions: cfg.Scheduling.DefaultTotalSessions,
		},
	)
	alternativeSvc := service.NewAlternativeStartService(
		availabilitySvc, service.NewSearchTracker(), metricsSvc, validate, logr,
		service.AlternativeStartConfig{
			Timeout:              cfg.Scheduling.SearchTimeout,
			MaxAlternatives:      cfg.Scheduling.MaxAlternatives,
			LockThreshold:        cfg.Scheduling.LockThreshold,
			DefaultTotalSessions: cfg.Scheduling.DefaultTotalSessions,
		},
	)
	rescheduleSvc := service.NewRescheduleService(
		availabilitySvc, sessionRepo, classRepo, db, queue,
		metricsSvc, validate, logr,
		service.RescheduleConfig{DefaultTotalSessions: cfg.Scheduling.DefaultTotalSessions},
	)

	h := handler.NewSchedulingHandler(availabilitySvc, planSvc, alternativeSvc, rescheduleSvc)
	api.GET("/timeslots", h.Timeslots)

	scheduling := api.Group("/scheduling")
	scheduling.POST("/slot-status", h.SlotStatus)
	scheduling.POST("/end-date", h.EndDate)
	scheduling.POST("/sessions/preview", h.PreviewSessions)
	scheduling.POST("/sessions/save", h.SaveSessions)
	scheduling.GET("/sessions/preview/:id/export", h.ExportSessions)
	scheduling.POST("/alternatives", h.Alternatives)
	scheduling.POST("/reschedule/impact", h.RescheduleImpact)
	scheduling.POST("/reschedule/apply", h.RescheduleApply)

	return queue
}
