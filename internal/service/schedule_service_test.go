package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/membership-api/internal/models"
)

type memScheduleRepo struct {
	schedules map[int64]models.Schedule
	nextID    int64
}

func (m *memScheduleRepo) List(context.Context) ([]models.Schedule, error) {
	out := make([]models.Schedule, 0, len(m.schedules))
	for id := int64(1); id <= m.nextID; id++ {
		if s, ok := m.schedules[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) ListWithStudents(ctx context.Context) ([]models.ScheduleWithStudents, error) {
	schedules, _ := m.List(ctx)
	out := make([]models.ScheduleWithStudents, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, models.ScheduleWithStudents{Schedule: s, Students: []models.Student{}})
	}
	return out, nil
}

func (m *memScheduleRepo) FindByID(_ context.Context, id int64) (*models.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memScheduleRepo) Create(_ context.Context, schedule *models.Schedule) error {
	if m.schedules == nil {
		m.schedules = map[int64]models.Schedule{}
	}
	m.nextID++
	schedule.ID = m.nextID
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *memScheduleRepo) Update(_ context.Context, schedule *models.Schedule) error {
	if _, ok := m.schedules[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *memScheduleRepo) Delete(_ context.Context, id int64) (*models.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.schedules, id)
	return &s, nil
}

func TestScheduleServiceLifecycle(t *testing.T) {
	svc := NewScheduleService(&memScheduleRepo{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateScheduleRequest{Title: "  "})
	assertAppError(t, err, http.StatusBadRequest, MsgScheduleTitleRequired)

	created, err := svc.Create(ctx, CreateScheduleRequest{Title: "Morning", Description: "6-9am"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	updated, err := svc.Update(ctx, "1", UpdateScheduleRequest{Title: strPtr("Dawn")})
	require.NoError(t, err)
	assert.Equal(t, "Dawn", updated.Title)
	assert.Equal(t, "6-9am", updated.Description)

	roster, err := svc.ListWithStudents(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.NotNil(t, roster[0].Students)

	deleted, err := svc.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Dawn", deleted.Title)

	_, err = svc.Delete(ctx, "1")
	assertAppError(t, err, http.StatusNotFound, MsgScheduleNotFound)

	_, err = svc.Update(ctx, "x", UpdateScheduleRequest{})
	assertAppError(t, err, http.StatusNotFound, MsgScheduleNotFound)
}
