package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/repository"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

// Validation and outcome messages returned to API clients.
const (
	MsgMissingRequiredFields = "Missing required fields"
	MsgPhoneRequired         = "Phone number must be a non-empty string"
	MsgPhoneIfProvided       = "Phone number must be a non-empty string if provided"
	MsgEmailInUse            = "Email already in use"
	MsgEmailInUseByOther     = "Email already in use by another student"
	MsgInvalidShift          = "Invalid shift ID"
	MsgStudentNotFound       = "Student not found"
	MsgRenewDatesRequired    = "Membership start and end dates are required"
	MsgEndBeforeStart        = "Membership end date must not be before start date"
	MsgInvalidDate           = "Invalid date format, expected YYYY-MM-DD"
	MsgInvalidStatus         = "Status must be either active or expired"
	MsgStudentDeleted        = "Student deleted successfully"
	MsgMembershipRenewed     = "Membership renewed successfully"
)

// dashboardCachePattern matches every cached dashboard payload.
const dashboardCachePattern = "dash:*"

type studentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	ListByStatus(ctx context.Context, status models.MembershipStatus) ([]models.Student, error)
	ListExpiring(ctx context.Context, today, threshold models.Date) ([]models.Student, error)
	ListByShift(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Renew(ctx context.Context, id int64, start, end models.Date) (*models.Student, error)
	Delete(ctx context.Context, id int64) (*models.Student, error)
}

type shiftChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ErrInvalidShiftRef is returned when shift_id is neither a number nor a
// numeric string.
var ErrInvalidShiftRef = errors.New("shift_id must be an integer")

// ShiftRef is a shift id sent as a JSON number or a numeric string, as form
// selects post it. An empty string decodes to zero, meaning no shift.
type ShiftRef int64

// UnmarshalJSON accepts 2, "2" and "".
func (r *ShiftRef) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*r = 0
			return nil
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrInvalidShiftRef
	}
	*r = ShiftRef(id)
	return nil
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name            string    `json:"name" validate:"required"`
	Email           string    `json:"email" validate:"required"`
	Phone           string    `json:"phone" validate:"required"`
	MembershipStart string    `json:"membership_start" validate:"required"`
	MembershipEnd   string    `json:"membership_end" validate:"required"`
	ShiftID         *ShiftRef `json:"shift_id" swaggertype:"integer"`
}

// UpdateStudentRequest holds a partial update; nil fields keep their values.
type UpdateStudentRequest struct {
	Name            *string   `json:"name"`
	Email           *string   `json:"email"`
	Phone           *string   `json:"phone"`
	MembershipStart *string   `json:"membership_start"`
	MembershipEnd   *string   `json:"membership_end"`
	ShiftID         *ShiftRef `json:"shift_id" swaggertype:"integer"`
	Status          *string   `json:"status"`
}

// RenewMembershipRequest carries the new membership window.
type RenewMembershipRequest struct {
	MembershipStart string `json:"membership_start" validate:"required"`
	MembershipEnd   string `json:"membership_end" validate:"required"`
}

// StudentServiceConfig tunes the expiry window.
type StudentServiceConfig struct {
	ExpiringWindowDays int
	MaxWindowDays      int
}

// StudentServiceParams groups constructor dependencies.
type StudentServiceParams struct {
	Repo      studentRepository
	Shifts    shiftChecker
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    StudentServiceConfig
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	shifts    shiftChecker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentServiceConfig
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(params StudentServiceParams) *StudentService {
	cfg := params.Config
	if cfg.ExpiringWindowDays <= 0 {
		cfg.ExpiringWindowDays = 30
	}
	if cfg.MaxWindowDays < cfg.ExpiringWindowDays {
		cfg.MaxWindowDays = 365
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      params.Repo,
		shifts:    params.Shifts,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ExpiringWindowDays returns the configured lookahead window.
func (s *StudentService) ExpiringWindowDays() int {
	return s.cfg.ExpiringWindowDays
}

// List returns every student ordered by name.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	start := time.Now()
	students, err := s.repo.ListAll(ctx)
	s.metrics.ObserveDBQuery("students.list_all", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return s.derive(students), nil
}

// ListActive returns students whose stored status is active.
func (s *StudentService) ListActive(ctx context.Context) ([]models.Student, error) {
	return s.listByStatus(ctx, models.MembershipActive)
}

// ListExpired returns students whose stored status is expired.
func (s *StudentService) ListExpired(ctx context.Context) ([]models.Student, error) {
	return s.listByStatus(ctx, models.MembershipExpired)
}

func (s *StudentService) listByStatus(ctx context.Context, status models.MembershipStatus) ([]models.Student, error) {
	start := time.Now()
	students, err := s.repo.ListByStatus(ctx, status)
	s.metrics.ObserveDBQuery("students.list_"+string(status), time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, fmt.Sprintf("failed to list %s students", status))
	}
	return s.derive(students), nil
}

// ListExpiringSoon returns stored-active students whose membership ends
// within the next days days, soonest first. days <= 0 uses the configured
// window.
func (s *StudentService) ListExpiringSoon(ctx context.Context, days int) ([]models.Student, error) {
	if days <= 0 {
		days = s.cfg.ExpiringWindowDays
	}
	if days > s.cfg.MaxWindowDays {
		return nil, appErrors.Validation(fmt.Sprintf("days must be between 1 and %d", s.cfg.MaxWindowDays))
	}
	today := s.today()
	start := time.Now()
	students, err := s.repo.ListExpiring(ctx, today, models.ExpiryThreshold(today, days))
	s.metrics.ObserveDBQuery("students.list_expiring", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list expiring memberships")
	}
	result := models.FilterExpiringSoon(students, today, days)
	s.metrics.SetExpiringSoon(len(result))
	return result, nil
}

// ListByShift returns a shift roster narrowed by search text and status. A
// shift id that is not a positive integer matches nothing.
func (s *StudentService) ListByShift(ctx context.Context, rawShiftID, search, status string) ([]models.Student, error) {
	shiftID, ok := parseID(rawShiftID)
	if !ok {
		return []models.Student{}, nil
	}
	filter := models.StudentFilter{
		ShiftID: shiftID,
		Search:  search,
		Status:  strings.ToLower(strings.TrimSpace(status)),
	}
	start := time.Now()
	students, err := s.repo.ListByShift(ctx, filter)
	s.metrics.ObserveDBQuery("students.list_by_shift", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list shift students")
	}
	return s.derive(students), nil
}

// Get returns a student with its shift title and description.
func (s *StudentService) Get(ctx context.Context, rawID string) (*models.StudentDetail, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgStudentNotFound)
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStudentErr(err, "failed to get student", MsgEmailInUse)
	}
	detail.Student = detail.Student.WithDerivedStatus(s.today(), s.cfg.ExpiringWindowDays)
	return detail, nil
}

// Create validates and inserts a student with status active.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(MsgMissingRequiredFields)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, appErrors.Validation(MsgMissingRequiredFields)
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, appErrors.Validation(MsgPhoneRequired)
	}
	startDate, endDate, err := parseWindow(req.MembershipStart, req.MembershipEnd)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Validation(MsgEmailInUse)
	}
	shiftID := normalizeShift(req.ShiftID)
	if err := s.ensureShift(ctx, shiftID); err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:            strings.TrimSpace(req.Name),
		Email:           email,
		Phone:           req.Phone,
		MembershipStart: startDate,
		MembershipEnd:   endDate,
		ShiftID:         shiftID,
		Status:          models.MembershipActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, s.mapStudentErr(err, "failed to create student", MsgEmailInUse)
	}
	s.afterWrite(ctx, "student.create")
	created := student.WithDerivedStatus(s.today(), s.cfg.ExpiringWindowDays)
	return &created, nil
}

// Update merges the provided fields into the stored student.
func (s *StudentService) Update(ctx context.Context, rawID string, req UpdateStudentRequest) (*models.Student, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgStudentNotFound)
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) == "" {
		return nil, appErrors.Validation(MsgPhoneIfProvided)
	}
	if (req.Name != nil && strings.TrimSpace(*req.Name) == "") || (req.Email != nil && strings.TrimSpace(*req.Email) == "") {
		return nil, appErrors.Validation(MsgMissingRequiredFields)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStudentErr(err, "failed to load student", MsgEmailInUseByOther)
	}
	student := existing.Student

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		taken, err := s.repo.ExistsByEmail(ctx, email, id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to validate email")
		}
		if taken {
			return nil, appErrors.Validation(MsgEmailInUseByOther)
		}
		student.Email = email
	}
	if shiftID := normalizeShift(req.ShiftID); shiftID != nil {
		if err := s.ensureShift(ctx, shiftID); err != nil {
			return nil, err
		}
		student.ShiftID = shiftID
	}
	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.MembershipStart != nil {
		if student.MembershipStart, err = parseDate(*req.MembershipStart); err != nil {
			return nil, err
		}
	}
	if req.MembershipEnd != nil {
		if student.MembershipEnd, err = parseDate(*req.MembershipEnd); err != nil {
			return nil, err
		}
	}
	if student.MembershipEnd.Before(student.MembershipStart) {
		return nil, appErrors.Validation(MsgEndBeforeStart)
	}
	if req.Status != nil {
		status := models.MembershipStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return nil, appErrors.Validation(MsgInvalidStatus)
		}
		student.Status = status
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, s.mapStudentErr(err, "failed to update student", MsgEmailInUseByOther)
	}
	s.afterWrite(ctx, "student.update")
	updated := student.WithDerivedStatus(s.today(), s.cfg.ExpiringWindowDays)
	return &updated, nil
}

// Delete removes a student and returns the deleted snapshot.
func (s *StudentService) Delete(ctx context.Context, rawID string) (*models.Student, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgStudentNotFound)
	}
	student, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, s.mapStudentErr(err, "failed to delete student", MsgEmailInUse)
	}
	s.afterWrite(ctx, "student.delete")
	deleted := student.WithDerivedStatus(s.today(), s.cfg.ExpiringWindowDays)
	return &deleted, nil
}

// Renew sets a new membership window and forces the status to active.
func (s *StudentService) Renew(ctx context.Context, rawID string, req RenewMembershipRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(MsgRenewDatesRequired)
	}
	startDate, endDate, err := parseWindow(req.MembershipStart, req.MembershipEnd)
	if err != nil {
		return nil, err
	}
	id, ok := parseID(rawID)
	if !ok {
		return nil, appErrors.NotFound(MsgStudentNotFound)
	}
	student, err := s.repo.Renew(ctx, id, startDate, endDate)
	if err != nil {
		return nil, s.mapStudentErr(err, "failed to renew membership", MsgEmailInUse)
	}
	s.afterWrite(ctx, "student.renew")
	renewed := student.WithDerivedStatus(s.today(), s.cfg.ExpiringWindowDays)
	return &renewed, nil
}

func (s *StudentService) ensureShift(ctx context.Context, shiftID *int64) error {
	if shiftID == nil {
		return nil
	}
	if s.shifts == nil {
		return nil
	}
	exists, err := s.shifts.Exists(ctx, *shiftID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate shift")
	}
	if !exists {
		return appErrors.Validation(MsgInvalidShift)
	}
	return nil
}

func (s *StudentService) afterWrite(ctx context.Context, operation string) {
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.metrics.RecordWrite(operation)
	s.logger.Debug("student write", zap.String("operation", operation))
}

func (s *StudentService) mapStudentErr(err error, internalMsg, duplicateMsg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.NotFound(MsgStudentNotFound)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return appErrors.Validation(duplicateMsg)
	case errors.Is(err, repository.ErrUnknownShift):
		return appErrors.Validation(MsgInvalidShift)
	default:
		return appErrors.Internal(err, internalMsg)
	}
}

func (s *StudentService) derive(students []models.Student) []models.Student {
	today := s.today()
	for i := range students {
		students[i] = students[i].WithDerivedStatus(today, s.cfg.ExpiringWindowDays)
	}
	return students
}

func (s *StudentService) today() models.Date {
	return models.Today(s.now())
}

// parseID accepts positive base-10 integers only.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// normalizeShift treats a missing or zero shift id as "no shift".
func normalizeShift(ref *ShiftRef) *int64 {
	if ref == nil || *ref == 0 {
		return nil
	}
	id := int64(*ref)
	return &id
}

func parseDate(raw string) (models.Date, error) {
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Validation(MsgInvalidDate)
	}
	return d, nil
}

func parseWindow(rawStart, rawEnd string) (models.Date, models.Date, error) {
	start, err := parseDate(rawStart)
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	end, err := parseDate(rawEnd)
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	if end.Before(start) {
		return models.Date{}, models.Date{}, appErrors.Validation(MsgEndBeforeStart)
	}
	return start, end, nil
}
