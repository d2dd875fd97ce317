package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/membership-api/internal/models"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

// Schedule messages returned to API clients.
const (
	MsgScheduleTitleRequired = "Title is required"
	MsgScheduleNotFound      = "Schedule not found"
	MsgScheduleDeleted       = "Schedule deleted successfully"
)

type scheduleRepository interface {
	List(ctx context.Context) ([]models.Schedule, error)
	ListWithStudents(ctx context.Context) ([]models.ScheduleWithStudents, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id int64) (*models.Schedule, error)
}

// CreateScheduleRequest is the payload for new shifts.
type CreateScheduleRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// UpdateScheduleRequest is a partial schedule update.
type UpdateScheduleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ScheduleService manages shifts.
type ScheduleService struct {
	repo      scheduleRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo scheduleRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns every schedule.
func (s *ScheduleService) List(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules")
	}
	return schedules, nil
}

// ListWithStudents returns every schedule with its roster.
func (s *ScheduleService) ListWithStudents(ctx context.Context) ([]models.ScheduleWithStudents, error) {
	schedules, err := s.repo.ListWithStudents(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules with students")
	}
	return schedules, nil
}

// Create validates and stores a schedule.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(MsgScheduleTitleRequired)
	}
	schedule := &models.Schedule{Title: req.Title, Description: strings.TrimSpace(req.Description)}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Internal(err, "failed to create schedule")
	}
	s.metrics.RecordWrite("schedule.create")
	return schedule, nil
}

// Update merges the provided fields into the schedule.
func (s *ScheduleService) Update(ctx context.Context, rawID string, req UpdateScheduleRequest) (*models.Schedule, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgScheduleNotFound)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, appErrors.Validation(MsgScheduleTitleRequired)
	}
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, scheduleErr(err, "failed to load schedule")
	}
	if req.Title != nil {
		schedule.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		schedule.Description = strings.TrimSpace(*req.Description)
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, scheduleErr(err, "failed to update schedule")
	}
	s.metrics.RecordWrite("schedule.update")
	return schedule, nil
}

// Delete removes a schedule; its students keep their records without a shift.
func (s *ScheduleService) Delete(ctx context.Context, rawID string) (*models.Schedule, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgScheduleNotFound)
	}
	schedule, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, scheduleErr(err, "failed to delete schedule")
	}
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.metrics.RecordWrite("schedule.delete")
	return schedule, nil
}

func scheduleErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(MsgScheduleNotFound)
	}
	return appErrors.Internal(err, msg)
}
