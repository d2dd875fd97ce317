package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/service"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

type fakeStudentSrv struct {
	students   []models.Student
	err        error
	lastDays   int
	lastShift  []string
	lastCreate service.CreateStudentRequest
	lastUpdate service.UpdateStudentRequest
	lastID     string
}

func (f *fakeStudentSrv) List(context.Context) ([]models.Student, error) {
	return f.students, f.err
}

func (f *fakeStudentSrv) ListActive(context.Context) ([]models.Student, error) {
	return f.students, f.err
}

func (f *fakeStudentSrv) ListExpired(context.Context) ([]models.Student, error) {
	return f.students, f.err
}

func (f *fakeStudentSrv) ListExpiringSoon(_ context.Context, days int) ([]models.Student, error) {
	f.lastDays = days
	return f.students, f.err
}

func (f *fakeStudentSrv) ListByShift(_ context.Context, rawShiftID, search, status string) ([]models.Student, error) {
	f.lastShift = []string{rawShiftID, search, status}
	return f.students, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, rawID string) (*models.StudentDetail, error) {
	f.lastID = rawID
	if f.err != nil {
		return nil, f.err
	}
	title := "Morning"
	return &models.StudentDetail{Student: f.students[0], ShiftTitle: &title}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &f.students[0], nil
}

func (f *fakeStudentSrv) Update(_ context.Context, rawID string, req service.UpdateStudentRequest) (*models.Student, error) {
	f.lastID = rawID
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &f.students[0], nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, rawID string) (*models.Student, error) {
	f.lastID = rawID
	if f.err != nil {
		return nil, f.err
	}
	return &f.students[0], nil
}

func (f *fakeStudentSrv) Renew(_ context.Context, rawID string, _ service.RenewMembershipRequest) (*models.Student, error) {
	f.lastID = rawID
	if f.err != nil {
		return nil, f.err
	}
	return &f.students[0], nil
}

type fakeExporter struct {
	last service.StudentExportRequest
}

func (f *fakeExporter) ExportStudents(_ context.Context, req service.StudentExportRequest) (*service.ExportFile, error) {
	f.last = req
	return &service.ExportFile{Filename: "students.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("ID\n1\n"), Rows: 1}, nil
}

func sampleStudents(n int) []models.Student {
	out := make([]models.Student, n)
	for i := range out {
		out[i] = models.Student{
			ID:              int64(i + 1),
			Name:            string(rune('A' + i)),
			Email:           string(rune('a'+i)) + "@example.com",
			Phone:           "555",
			MembershipStart: models.NewDate(2024, time.January, 1),
			MembershipEnd:   models.NewDate(2024, time.December, 31),
			Status:          models.MembershipActive,
			DerivedStatus:   models.DerivedActive,
		}
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }

func studentRouter(srv *fakeStudentSrv, exporter studentExporter) *StudentHandler {
	return NewStudentHandler(srv, exporter, 10, 100)
}

func TestStudentHandlerListUnpaged(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(3)}, nil)
	router.GET("/students", h.List)

	rec := performRequest(router, http.MethodGet, "/students", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["students"], 3)
	assert.Nil(t, envelope.Pagination)
}

func TestStudentHandlerListPaged(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(25)}, nil)
	router.GET("/students", h.List)

	rec := performRequest(router, http.MethodGet, "/students?page=3&page_size=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["students"], 5)
	assert.EqualValues(t, 3, envelope.Pagination["page"])
	assert.EqualValues(t, 25, envelope.Pagination["total_count"])
	assert.EqualValues(t, 3, envelope.Pagination["total_pages"])
}

func TestStudentHandlerListHugePageIsEmpty(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(3)}, nil)
	router.GET("/students", h.List)

	rec := performRequest(router, http.MethodGet, "/students?page=4611686018427387904", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["students"], 0)
	assert.EqualValues(t, 3, envelope.Pagination["total_count"])
}

func TestStudentHandlerListRejectsBadPage(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(1)}, nil)
	router.GET("/students", h.List)

	rec := performRequest(router, http.MethodGet, "/students?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerExpiringSoonLimit(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(8)}
	h := studentRouter(srv, nil)
	router.GET("/students/expiring-soon", h.ExpiringSoon)

	rec := performRequest(router, http.MethodGet, "/students/expiring-soon?days=5&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, srv.lastDays)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["students"], 5)
	assert.Equal(t, true, envelope.Pagination["view_all"])
}

func TestStudentHandlerExpiringSoonBadDays(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{}, nil)
	router.GET("/students/expiring-soon", h.ExpiringSoon)

	rec := performRequest(router, http.MethodGet, "/students/expiring-soon?days=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerByShiftForwardsFilters(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(1)}
	h := studentRouter(srv, nil)
	router.GET("/students/shift/:shiftId", h.ByShift)

	rec := performRequest(router, http.MethodGet, "/students/shift/4?search=an&status=expired", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"4", "an", "expired"}, srv.lastShift)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{err: appErrors.NotFound(service.MsgStudentNotFound)}, nil)
	router.GET("/students/:id", h.Get)

	rec := performRequest(router, http.MethodGet, "/students/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgStudentNotFound, envelope.Error["message"])
}

func TestStudentHandlerGetIncludesShift(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(1)}, nil)
	router.GET("/students/:id", h.Get)

	rec := performRequest(router, http.MethodGet, "/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Morning", envelope.Data["shift_title"])
	assert.Equal(t, "active", envelope.Data["derived_status"])
}

func TestStudentHandlerCreate(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(1)}
	h := studentRouter(srv, nil)
	router.POST("/students", h.Create)

	body := `{"name":"Ann","email":"ann@example.com","phone":"555","membership_start":"2024-01-01","membership_end":"2024-12-31","shift_id":2}`
	rec := performRequest(router, http.MethodPost, "/students", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ann", srv.lastCreate.Name)
	require.NotNil(t, srv.lastCreate.ShiftID)
	assert.EqualValues(t, 2, *srv.lastCreate.ShiftID)
}

func TestStudentHandlerCreateAcceptsFormShiftValues(t *testing.T) {
	cases := []struct {
		shift string
		want  *int64
	}{
		{`""`, nil},
		{`"2"`, int64Ptr(2)},
		{`null`, nil},
	}
	for _, tc := range cases {
		router := newTestEngine()
		srv := &fakeStudentSrv{students: sampleStudents(1)}
		router.POST("/students", studentRouter(srv, nil).Create)

		body := `{"name":"Ann","email":"ann@example.com","phone":"555","membership_start":"2024-01-01","membership_end":"2024-12-31","shift_id":` + tc.shift + `}`
		rec := performRequest(router, http.MethodPost, "/students", body)
		require.Equal(t, http.StatusCreated, rec.Code, tc.shift)
		if tc.want == nil {
			assert.True(t, srv.lastCreate.ShiftID == nil || *srv.lastCreate.ShiftID == 0, tc.shift)
			continue
		}
		require.NotNil(t, srv.lastCreate.ShiftID, tc.shift)
		assert.EqualValues(t, *tc.want, *srv.lastCreate.ShiftID)
	}
}

func TestStudentHandlerCreateRejectsNonNumericShift(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(1)}
	router.POST("/students", studentRouter(srv, nil).Create)

	rec := performRequest(router, http.MethodPost, "/students", `{"name":"Ann","shift_id":"evening"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgInvalidShift, envelope.Error["message"])
}

func TestStudentHandlerUpdateAcceptsStringShift(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(1)}
	router.PUT("/students/:id", studentRouter(srv, nil).Update)

	rec := performRequest(router, http.MethodPut, "/students/1", `{"shift_id":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastUpdate.ShiftID)
	assert.EqualValues(t, 3, *srv.lastUpdate.ShiftID)
}

func TestStudentHandlerCreateNumericPhone(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(1)}, nil)
	router.POST("/students", h.Create)

	rec := performRequest(router, http.MethodPost, "/students", `{"name":"Ann","phone":5551234}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgPhoneRequired, envelope.Error["message"])
}

func TestStudentHandlerCreateEmptyBodyReachesService(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{err: appErrors.Validation(service.MsgMissingRequiredFields)}
	h := studentRouter(srv, nil)
	router.POST("/students", h.Create)

	rec := performRequest(router, http.MethodPost, "/students", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgMissingRequiredFields, envelope.Error["message"])
}

func TestStudentHandlerUpdatePartial(t *testing.T) {
	router := newTestEngine()
	srv := &fakeStudentSrv{students: sampleStudents(1)}
	h := studentRouter(srv, nil)
	router.PUT("/students/:id", h.Update)

	rec := performRequest(router, http.MethodPut, "/students/1", `{"phone":"777"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", srv.lastID)
	require.NotNil(t, srv.lastUpdate.Phone)
	assert.Equal(t, "777", *srv.lastUpdate.Phone)
	assert.Nil(t, srv.lastUpdate.Name)
}

func TestStudentHandlerDeleteAndRenewMessages(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{students: sampleStudents(1)}, nil)
	router.DELETE("/students/:id", h.Delete)
	router.POST("/students/:id/renew", h.Renew)

	rec := performRequest(router, http.MethodDelete, "/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgStudentDeleted, envelope.Data["message"])
	assert.NotNil(t, envelope.Data["student"])

	rec = performRequest(router, http.MethodPost, "/students/1/renew", `{"membership_start":"2025-01-01","membership_end":"2025-12-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope = responseEnvelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, service.MsgMembershipRenewed, envelope.Data["message"])
}

func TestStudentHandlerStoreFaultCarriesDetail(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{err: appErrors.Internal(assert.AnError, "failed to list students")}, nil)
	router.GET("/students", h.List)

	rec := performRequest(router, http.MethodGet, "/students", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, assert.AnError.Error(), envelope.Error["detail"])
}

func TestStudentHandlerExport(t *testing.T) {
	router := newTestEngine()
	exporter := &fakeExporter{}
	h := studentRouter(&fakeStudentSrv{}, exporter)
	router.GET("/students/export", h.Export)

	rec := performRequest(router, http.MethodGet, "/students/export?format=csv&shift_id=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "students.csv")
	assert.Equal(t, "3", exporter.last.ShiftID)
	assert.Equal(t, "ID\n1\n", rec.Body.String())
}

func TestStudentHandlerExportDisabled(t *testing.T) {
	router := newTestEngine()
	h := studentRouter(&fakeStudentSrv{}, nil)
	router.GET("/students/export", h.Export)

	rec := performRequest(router, http.MethodGet, "/students/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
