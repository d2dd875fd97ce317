package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/membership-api/internal/models"
)

// Constraint violations surfaced by student writes.
var (
	ErrDuplicateEmail = errors.New("email already in use")
	ErrUnknownShift   = errors.New("shift does not exist")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const studentColumns = `s.id, s.name, s.email, s.phone, s.membership_start, s.membership_end, s.shift_id, s.status, s.created_at, s.updated_at`

const studentReturning = `RETURNING id, name, email, phone, membership_start, membership_end, shift_id, status, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListAll returns every student ordered by name.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	return r.list(ctx, "s.name ASC")
}

// ListByStatus returns students with the given stored status ordered by name.
func (r *StudentRepository) ListByStatus(ctx context.Context, status models.MembershipStatus) ([]models.Student, error) {
	return r.list(ctx, "s.name ASC", Eq("s.status", status))
}

// ListExpiring returns stored-active students whose membership ends after
// today and on or before threshold, soonest first.
func (r *StudentRepository) ListExpiring(ctx context.Context, today, threshold models.Date) ([]models.Student, error) {
	return r.list(ctx, "s.membership_end ASC, s.name ASC",
		Eq("s.status", models.MembershipActive),
		Predicate{Expr: "s.membership_end > ?", Args: []interface{}{today}},
		Predicate{Expr: "s.membership_end <= ?", Args: []interface{}{threshold}},
	)
}

// ListByShift returns the roster of a shift narrowed by search text and
// stored status, ordered by name.
func (r *StudentRepository) ListByShift(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	preds := []Predicate{Eq("s.shift_id", filter.ShiftID)}
	if filter.Search != "" {
		preds = append(preds, Search(filter.Search, "s.name", "s.phone"))
	}
	if filter.Status != "" && filter.Status != models.StatusFilterAll {
		preds = append(preds, Eq("s.status", filter.Status))
	}
	return r.list(ctx, "s.name ASC", preds...)
}

func (r *StudentRepository) list(ctx context.Context, orderBy string, preds ...Predicate) ([]models.Student, error) {
	where, args := Where(preds...)
	query := rebind(fmt.Sprintf("SELECT %s FROM students s%s ORDER BY %s", studentColumns, where, orderBy))

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student joined with its shift. It returns
// sql.ErrNoRows when the id is unknown.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, sch.title AS shift_title, sch.description AS shift_description
        FROM students s
        LEFT JOIN schedules sch ON sch.id = s.shift_id
        WHERE s.id = $1`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &detail, nil
}

// ExistsByEmail checks if a student with the email exists, optionally
// excluding one id.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = $1"
	args := []interface{}{email}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// Create inserts a student and fills the generated id and timestamps.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	const query = `INSERT INTO students (name, email, phone, membership_start, membership_end, shift_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ` + studentReturning
	err := r.db.GetContext(ctx, student, query,
		student.Name, student.Email, student.Phone, student.MembershipStart, student.MembershipEnd,
		student.ShiftID, student.Status, now, now)
	if err != nil {
		return fmt.Errorf("create student: %w", translateConstraint(err))
	}
	return nil
}

// Update overwrites the mutable fields of a student. It returns
// sql.ErrNoRows when the row vanished.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET name = $1, email = $2, phone = $3, membership_start = $4, membership_end = $5,
        shift_id = $6, status = $7, updated_at = $8 WHERE id = $9 ` + studentReturning
	err := r.db.GetContext(ctx, student, query,
		student.Name, student.Email, student.Phone, student.MembershipStart, student.MembershipEnd,
		student.ShiftID, student.Status, time.Now().UTC(), student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update student: %w", translateConstraint(err))
	}
	return nil
}

// Renew resets the membership window and forces the active status.
func (r *StudentRepository) Renew(ctx context.Context, id int64, start, end models.Date) (*models.Student, error) {
	const query = `UPDATE students SET membership_start = $1, membership_end = $2, status = $3, updated_at = $4
        WHERE id = $5 ` + studentReturning
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, start, end, models.MembershipActive, time.Now().UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("renew student: %w", err)
	}
	return &student, nil
}

// Delete removes a student and returns the deleted snapshot.
func (r *StudentRepository) Delete(ctx context.Context, id int64) (*models.Student, error) {
	const query = `DELETE FROM students WHERE id = $1 ` + studentReturning
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete student: %w", err)
	}
	return &student, nil
}

// Counts aggregates stored statuses in a single scan.
func (r *StudentRepository) Counts(ctx context.Context) (*models.DashboardCounts, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'active') AS active,
        COUNT(*) FILTER (WHERE status = 'expired') AS expired
        FROM students`
	var counts models.DashboardCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	return &counts, nil
}

func translateConstraint(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, pqErr.Constraint)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrUnknownShift, pqErr.Constraint)
	default:
		return err
	}
}
