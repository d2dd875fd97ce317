package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/service"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

type fakeScheduleSrv struct {
	schedules  []models.Schedule
	err        error
	lastCreate service.CreateScheduleRequest
	lastID     string
}

func (f *fakeScheduleSrv) List(context.Context) ([]models.Schedule, error) {
	return f.schedules, f.err
}

func (f *fakeScheduleSrv) ListWithStudents(context.Context) ([]models.ScheduleWithStudents, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.ScheduleWithStudents, 0, len(f.schedules))
	for _, s := range f.schedules {
		out = append(out, models.ScheduleWithStudents{Schedule: s, Students: []models.Student{}})
	}
	return out, nil
}

func (f *fakeScheduleSrv) Create(_ context.Context, req service.CreateScheduleRequest) (*models.Schedule, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Schedule{ID: 9, Title: req.Title, Description: req.Description}, nil
}

func (f *fakeScheduleSrv) Update(_ context.Context, rawID string, _ service.UpdateScheduleRequest) (*models.Schedule, error) {
	f.lastID = rawID
	if f.err != nil {
		return nil, f.err
	}
	return &f.schedules[0], nil
}

func (f *fakeScheduleSrv) Delete(_ context.Context, rawID string) (*models.Schedule, error) {
	f.lastID = rawID
	if f.err != nil {
		return nil, f.err
	}
	return &f.schedules[0], nil
}

func TestScheduleHandlerList(t *testing.T) {
	router := newTestEngine()
	h := NewScheduleHandler(&fakeScheduleSrv{schedules: []models.Schedule{{ID: 1, Title: "Morning"}, {ID: 2, Title: "Evening"}}})
	router.GET("/schedules", h.List)
	router.GET("/schedules/with-students", h.WithStudents)

	rec := performRequest(router, http.MethodGet, "/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["schedules"], 2)

	rec = performRequest(router, http.MethodGet, "/schedules/with-students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"students":[]`)
}

func TestScheduleHandlerCreate(t *testing.T) {
	router := newTestEngine()
	srv := &fakeScheduleSrv{}
	router.POST("/schedules", NewScheduleHandler(srv).Create)

	rec := performRequest(router, http.MethodPost, "/schedules", `{"title":"Night","description":"late"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Night", srv.lastCreate.Title)
}

func TestScheduleHandlerCreateMalformed(t *testing.T) {
	router := newTestEngine()
	router.POST("/schedules", NewScheduleHandler(&fakeScheduleSrv{}).Create)

	rec := performRequest(router, http.MethodPost, "/schedules", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerDelete(t *testing.T) {
	router := newTestEngine()
	srv := &fakeScheduleSrv{schedules: []models.Schedule{{ID: 3, Title: "Noon"}}}
	router.DELETE("/schedules/:id", NewScheduleHandler(srv).Delete)

	rec := performRequest(router, http.MethodDelete, "/schedules/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", srv.lastID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgScheduleDeleted, envelope.Data["message"])
}

func TestScheduleHandlerUpdateNotFound(t *testing.T) {
	router := newTestEngine()
	srv := &fakeScheduleSrv{err: appErrors.NotFound(service.MsgScheduleNotFound)}
	router.PUT("/schedules/:id", NewScheduleHandler(srv).Update)

	rec := performRequest(router, http.MethodPut, "/schedules/42", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
