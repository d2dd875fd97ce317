package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL+"/api/", WithHTTPClient(srv.Client()))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestLoginStoresTokenAndSendsIt(t *testing.T) {
	var seenAuth string
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "admin", body["username"])
			writeJSON(w, http.StatusOK, `{"data":{"access_token":"tok-1"}}`)
		case "/api/students/stats/dashboard":
			seenAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, `{"data":{"totalStudents":4,"activeStudents":3,"expiredMemberships":1}}`)
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, c.Login(context.Background(), "admin", "secret"))
	assert.Equal(t, "tok-1", c.Token())

	stats, err := c.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", seenAuth)
	assert.Equal(t, DashboardStats{TotalStudents: 4, ActiveStudents: 3, ExpiredMemberships: 1}, *stats)
}

func TestUnauthorizedIsSessionExpired(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":{"code":"SESSION_EXPIRED","message":"session expired"}}`)
	})
	c.token = "stale"

	_, err := c.Students(context.Background(), PageOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, c.Token())
}

func TestAPIErrorCarriesEnvelope(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"Student not found","status":404}}`)
	})

	_, err := c.Student(context.Background(), 9)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "Student not found", apiErr.Message)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base)
	_, err := c.Schedules(context.Background(), false)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestListQueriesAndPagination(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students/shift/3", r.URL.Path)
		assert.Equal(t, "an", r.URL.Query().Get("search"))
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, `{"data":{"students":[{"id":1,"name":"Ann","derived_status":"expiring_soon"}]},"pagination":{"page":2,"page_size":10,"total_count":11,"total_pages":2}}`)
	})

	page, err := c.StudentsByShift(context.Background(), 3, "an", "active", PageOptions{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Students, 1)
	assert.Equal(t, "expiring_soon", page.Students[0].DerivedStatus)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, 11, page.Pagination.TotalCount)
}

func TestUpdateSendsOnlyProvidedFields(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"phone": "777"}, body)
		writeJSON(w, http.StatusOK, `{"data":{"id":1,"phone":"777"}}`)
	})

	phone := "777"
	student, err := c.UpdateStudent(context.Background(), 1, StudentPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "777", student.Phone)
}

func TestFetchCamelizesKeys(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"students":[{"membership_end":"2024-12-31","shift_id":null}]}}`)
	})

	data, err := c.Fetch(context.Background(), "/students", nil)
	require.NoError(t, err)
	students := data.(map[string]interface{})["students"].([]interface{})
	first := students[0].(map[string]interface{})
	assert.Equal(t, "2024-12-31", first["membershipEnd"])
	assert.Contains(t, first, "shiftId")
}
