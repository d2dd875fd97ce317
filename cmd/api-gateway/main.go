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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/membership-api/api/swagger"
	"github.com/noah-isme/membership-api/internal/handler"
	"github.com/noah-isme/membership-api/internal/repository"
	"github.com/noah-isme/membership-api/internal/router"
	"github.com/noah-isme/membership-api/internal/service"
	"github.com/noah-isme/membership-api/pkg/cache"
	"github.com/noah-isme/membership-api/pkg/config"
	"github.com/noah-isme/membership-api/pkg/database"
	"github.com/noah-isme/membership-api/pkg/logger"
)

// @title Membership API
// @version 1.0.0
// @description Student membership, shift and dashboard service
// @BasePath /api
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// A nil interface, not a typed nil, keeps the cache repository inert.
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, "membership:", logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if cfg.Bootstrap.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			logr.Error("failed to bootstrap admin account", zap.Error(err))
		}
		cancel()
	}

	studentSvc := service.NewStudentService(service.StudentServiceParams{
		Repo:      studentRepo,
		Shifts:    scheduleRepo,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.StudentServiceConfig{
			ExpiringWindowDays: cfg.Membership.ExpiringWindowDays,
			MaxWindowDays:      cfg.Membership.MaxWindowDays,
		},
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, cacheSvc, metrics, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Counter: studentRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	var studentHandler *handler.StudentHandler
	if cfg.Exports.Enabled {
		studentHandler = handler.NewStudentHandler(studentSvc, service.NewExportService(studentSvc, metrics, logr),
			cfg.Membership.DefaultPageSize, cfg.Membership.MaxPageSize)
	} else {
		studentHandler = handler.NewStudentHandler(studentSvc, nil, cfg.Membership.DefaultPageSize, cfg.Membership.MaxPageSize)
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["cache"] = cacheRepo.Ping
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authSvc,
		Observer:       metrics,
		Logger:         logr,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Students:  studentHandler,
		Schedules: handler.NewScheduleHandler(scheduleSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("cache", redisClient != nil),
			zap.Bool("exports", cfg.Exports.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
	logr.Info("server stopped")
}
