// Package router assembles the gin engine and route table.
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/membership-api/internal/handler"
	"github.com/noah-isme/membership-api/internal/middleware"
	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/membership-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/membership-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth      *handler.AuthHandler
	Students  *handler.StudentHandler
	Schedules *handler.ScheduleHandler
	Dashboard *handler.DashboardHandler
	Metrics   *handler.MetricsHandler
}

// Options configures the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	Observer       middleware.RequestObserver
	Logger         *zap.Logger
}

// New builds the engine with the global middleware chain and every route.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(normalizePrefix(opts.APIPrefix))

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.GET("/status", middleware.JWT(opts.Tokens), h.Auth.Status)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRoles(models.RoleAdmin)

	students := secured.Group("/students")
	students.GET("", staff, h.Students.List)
	students.GET("/active", staff, h.Students.Active)
	students.GET("/expired", staff, h.Students.Expired)
	students.GET("/expiring-soon", staff, h.Students.ExpiringSoon)
	students.GET("/export", staff, h.Students.Export)
	students.GET("/stats/dashboard", admin, h.Dashboard.Stats)
	students.GET("/shift/:shiftId", staff, h.Students.ByShift)
	students.GET("/:id", staff, h.Students.Get)
	students.POST("", staff, h.Students.Create)
	students.PUT("/:id", staff, h.Students.Update)
	students.DELETE("/:id", staff, h.Students.Delete)
	students.POST("/:id/renew", admin, h.Students.Renew)

	schedules := secured.Group("/schedules", staff)
	schedules.GET("", h.Schedules.List)
	schedules.GET("/with-students", h.Schedules.WithStudents)
	schedules.POST("", h.Schedules.Create)
	schedules.PUT("/:id", h.Schedules.Update)
	schedules.DELETE("/:id", h.Schedules.Delete)

	secured.GET("/metrics/snapshot", admin, h.Metrics.Snapshot)

	return r
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return "/"
	}
	return "/" + strings.Trim(prefix, "/")
}
