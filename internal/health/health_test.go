package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReportAggregation(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register("temporal", true, func(ctx context.Context) error { return nil })
	m.Register("redis", false, func(ctx context.Context) error { return errors.New("down") })

	rep := m.Report(context.Background())
	assert.Equal(t, StatusDegraded, rep.Status, "optional failure only degrades")
	require.Len(t, rep.Checks, 2)
	assert.Equal(t, StatusHealthy, rep.Checks[0].Status)
	assert.Equal(t, StatusUnhealthy, rep.Checks[1].Status)
	assert.Equal(t, "down", rep.Checks[1].Error)
}

func TestReportCriticalFailure(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register("temporal", true, func(ctx context.Context) error { return errors.New("unreachable") })

	rep := m.Report(context.Background())
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.False(t, m.Ready(context.Background()))
}

func TestReportNoProbes(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	assert.Equal(t, StatusHealthy, m.Report(context.Background()).Status)
	assert.True(t, m.Ready(context.Background()))
}

func TestHTTPEndpoints(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register("store", false, func(ctx context.Context) error { return errors.New("no db") })

	mux := http.NewServeMux()
	NewHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "degraded still serves 200")

	var rep Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, StatusDegraded, rep.Status)

	live, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	live.Body.Close()
	assert.Equal(t, http.StatusOK, live.StatusCode)

	ready, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}

func TestHTTPReadyCriticalFailure(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Register("temporal", true, func(ctx context.Context) error { return errors.New("gone") })

	mux := http.NewServeMux()
	NewHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
