package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/agrisense/sensor-fusion-service/internal/adapter/http"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
	"github.com/agrisense/sensor-fusion-service/internal/stream"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStream struct {
	status map[string]stream.BufferStatus
	report fusion.Report
}

func (m *mockStream) Status() map[string]stream.BufferStatus { return m.status }
func (m *mockStream) Report() fusion.Report                  { return m.report }

func newTestServer(readyErr error, streamSvc *mockStream) *httpadapter.Server {
	if streamSvc == nil {
		streamSvc = &mockStream{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, streamSvc, logger)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusEndpoint(t *testing.T) {
	ts := time.Date(2026, 6, 14, 8, 0, 0, 0, time.UTC)
	streamSvc := &mockStream{
		status: map[string]stream.BufferStatus{
			"temperature": {
				Size:            3,
				Capacity:        1000,
				LatestTimestamp: ts,
				LatestValue:     21.5,
				AvgQuality:      0.9,
			},
		},
	}

	srv := newTestServer(nil, streamSvc)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Buffers map[string]stream.BufferStatus `json:"buffers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Buffers, "temperature")
	assert.Equal(t, 3, body.Buffers["temperature"].Size)
	assert.Equal(t, 1000, body.Buffers["temperature"].Capacity)
	assert.InDelta(t, 21.5, body.Buffers["temperature"].LatestValue, 1e-9)
}

func TestReportEndpoint(t *testing.T) {
	streamSvc := &mockStream{
		report: fusion.Report{
			FieldID:       "field-9",
			TotalReadings: 7,
			FusedValues:   map[string]float64{"humidity": 61.2},
		},
	}

	srv := newTestServer(nil, streamSvc)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/report", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var report fusion.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "field-9", report.FieldID)
	assert.Equal(t, 7, report.TotalReadings)
	assert.InDelta(t, 61.2, report.FusedValues["humidity"], 1e-9)
}
