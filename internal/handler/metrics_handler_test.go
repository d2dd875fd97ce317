package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/membership-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	router := newTestEngine()
	router.GET("/ready", NewMetricsHandler(nil, map[string]ReadinessCheck{"database": ok}).Ready)
	rec := performRequest(router, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	router = newTestEngine()
	router.GET("/ready", NewMetricsHandler(nil, map[string]ReadinessCheck{"database": ok, "cache": down}).Ready)
	rec = performRequest(router, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SERVICE_UNAVAILABLE", envelope.Error["code"])
	assert.Equal(t, "cache: connection refused", envelope.Error["detail"])
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordWrite("student.create")

	router := newTestEngine()
	h := NewMetricsHandler(metrics, nil)
	router.GET("/metrics", h.Prometheus)
	router.GET("/health", h.Health)

	rec := performRequest(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "membership_writes_total")

	rec = performRequest(router, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsHandlerPrometheusDisabled(t *testing.T) {
	router := newTestEngine()
	router.GET("/metrics", NewMetricsHandler(nil, nil).Prometheus)
	rec := performRequest(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
