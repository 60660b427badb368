package core

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

type stubProbe struct {
	name string
	err  error
	fn   func(ctx context.Context) error
}

func (p *stubProbe) Name() string { return p.name }

func (p *stubProbe) Check(ctx context.Context) error {
	if p.fn != nil {
		return p.fn(ctx)
	}
	return p.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	srv := testServer(t)
	srv.HealthProbes = []HealthProbe{&stubProbe{name: "database"}}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeHealth(t, rec)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Components["database"].Status)
}

func TestHandleHealth_FailingProbeIs503(t *testing.T) {
	srv := testServer(t)
	srv.HealthProbes = []HealthProbe{
		&stubProbe{name: "database", err: errors.New("connection refused")},
	}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeHealth(t, rec)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Components["database"].Status)
	assert.Contains(t, body.Components["database"].Message, "connection refused")
}

func TestHandleHealth_PanickingProbeIsUnhealthy(t *testing.T) {
	srv := testServer(t)
	srv.HealthProbes = []HealthProbe{
		&stubProbe{name: "database", fn: func(_ context.Context) error { panic("nil pool") }},
	}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeHealth(t, rec)
	assert.Equal(t, "unhealthy", body.Components["database"].Status)
}

func TestHandleHealth_NoProbesIsHealthy(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeHealth(t, rec).Status)
}
