package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/membership-api/internal/models"
)

type stubStudentLister struct {
	all       []models.Student
	byShift   []models.Student
	shiftArgs []string
	err       error
}

func (s *stubStudentLister) List(ctx context.Context) ([]models.Student, error) {
	return s.all, s.err
}

func (s *stubStudentLister) ListByShift(ctx context.Context, rawShiftID, search, status string) ([]models.Student, error) {
	s.shiftArgs = []string{rawShiftID, search, status}
	return s.byShift, s.err
}

func exportFixture() []models.Student {
	shift := int64(4)
	return []models.Student{
		{
			ID: 1, Name: "Ann", Email: "ann@example.com", Phone: "555-0100",
			MembershipStart: models.NewDate(2024, time.January, 1),
			MembershipEnd:   models.NewDate(2024, time.December, 31),
			ShiftID:         &shift,
			Status:          models.MembershipActive,
			DerivedStatus:   models.DerivedExpiringSoon,
		},
		{
			ID: 2, Name: "Bob", Email: "bob@example.com", Phone: "555-0101",
			MembershipStart: models.NewDate(2023, time.January, 1),
			MembershipEnd:   models.NewDate(2023, time.June, 30),
			Status:          models.MembershipExpired,
			DerivedStatus:   models.DerivedExpired,
		},
	}
}

func newTestExportService(lister studentLister) *ExportService {
	svc := NewExportService(lister, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportStudentsCSVIncludesDerivedStatus(t *testing.T) {
	svc := newTestExportService(&stubStudentLister{all: exportFixture()})

	file, err := svc.ExportStudents(context.Background(), StudentExportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "students_20240305_103000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, 2, file.Rows)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Derived Status", records[0][8])
	assert.Equal(t, []string{"1", "Ann", "ann@example.com", "555-0100", "2024-01-01", "2024-12-31", "4", "active", "expiring_soon"}, records[1])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "expired", records[2][8])
}

func TestExportStudentsByShiftPassesFilter(t *testing.T) {
	lister := &stubStudentLister{byShift: exportFixture()[:1]}
	svc := newTestExportService(lister)

	file, err := svc.ExportStudents(context.Background(), StudentExportRequest{Format: "xlsx", ShiftID: "4", Search: "an", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "an", "active"}, lister.shiftArgs)
	assert.Equal(t, 1, file.Rows)
	assert.Equal(t, "students_20240305_103000.xlsx", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("PK")))
}

func TestExportStudentsPDF(t *testing.T) {
	svc := newTestExportService(&stubStudentLister{all: exportFixture()})

	file, err := svc.ExportStudents(context.Background(), StudentExportRequest{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportStudentsRejectsUnknownFormat(t *testing.T) {
	svc := newTestExportService(&stubStudentLister{})

	_, err := svc.ExportStudents(context.Background(), StudentExportRequest{Format: "docx"})
	assertAppError(t, err, http.StatusBadRequest, "format must be one of csv, xlsx, pdf")
}

func TestExportStudentsPropagatesListError(t *testing.T) {
	svc := newTestExportService(&stubStudentLister{err: assert.AnError})

	_, err := svc.ExportStudents(context.Background(), StudentExportRequest{})
	require.ErrorIs(t, err, assert.AnError)
}
