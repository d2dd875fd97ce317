package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/membership-api/internal/dto"
	"github.com/noah-isme/membership-api/internal/models"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

const dashboardStatsKey = "dash:students"

type studentCounter interface {
	Counts(ctx context.Context) (*models.DashboardCounts, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Counter studentCounter
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// DashboardService serves the admin dashboard counts.
type DashboardService struct {
	counter studentCounter
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		counter: params.Counter,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Stats returns total, stored-active and stored-expired counts and whether
// they came from cache. Counts are not corrected for lapsed end dates.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStatsResponse, bool, error) {
	var cached dto.DashboardStatsResponse
	if s.cache.Get(ctx, dashboardStatsKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	counts, err := s.counter.Counts(ctx)
	s.metrics.ObserveDBQuery("students.counts", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load dashboard stats")
	}

	stats := &dto.DashboardStatsResponse{
		TotalStudents:      counts.Total,
		ActiveStudents:     counts.Active,
		ExpiredMemberships: counts.Expired,
	}
	s.cache.Set(ctx, dashboardStatsKey, stats, s.cfg.CacheTTL)
	return stats, false, nil
}
