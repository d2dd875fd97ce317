package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/membership-api/internal/models"
)

const scheduleColumns = `id, title, description, created_at, updated_at`

// ScheduleRepository provides persistence for schedules (shifts).
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns all schedules ordered by title.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules ORDER BY title ASC, id ASC", scheduleColumns)
	schedules := []models.Schedule{}
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// ListWithStudents returns every schedule with its roster ordered by name.
func (r *ScheduleRepository) ListWithStudents(ctx context.Context) ([]models.ScheduleWithStudents, error) {
	schedules, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.shift_id IS NOT NULL ORDER BY s.name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list schedule students: %w", err)
	}

	byShift := make(map[int64][]models.Student, len(schedules))
	for _, student := range students {
		byShift[*student.ShiftID] = append(byShift[*student.ShiftID], student)
	}

	result := make([]models.ScheduleWithStudents, 0, len(schedules))
	for _, schedule := range schedules {
		roster := byShift[schedule.ID]
		if roster == nil {
			roster = []models.Student{}
		}
		result = append(result, models.ScheduleWithStudents{Schedule: schedule, Students: roster})
	}
	return result, nil
}

// FindByID returns a schedule or sql.ErrNoRows.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &schedule, nil
}

// Exists reports whether a schedule with the id exists.
func (r *ScheduleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM schedules WHERE id = $1)", id); err != nil {
		return false, fmt.Errorf("check schedule: %w", err)
	}
	return exists, nil
}

// Create inserts a schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	now := time.Now().UTC()
	query := fmt.Sprintf("INSERT INTO schedules (title, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING %s", scheduleColumns)
	if err := r.db.GetContext(ctx, schedule, query, schedule.Title, schedule.Description, now, now); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update writes title and description. It returns sql.ErrNoRows when absent.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	query := fmt.Sprintf("UPDATE schedules SET title = $1, description = $2, updated_at = $3 WHERE id = $4 RETURNING %s", scheduleColumns)
	if err := r.db.GetContext(ctx, schedule, query, schedule.Title, schedule.Description, time.Now().UTC(), schedule.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule; assigned students are detached by the foreign
// key's ON DELETE SET NULL.
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) (*models.Schedule, error) {
	query := fmt.Sprintf("DELETE FROM schedules WHERE id = $1 RETURNING %s", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete schedule: %w", err)
	}
	return &schedule, nil
}
