package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_RecordRequest(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	m.RecordRequest(ctx, http.MethodGet, "/api/v1/bins", http.StatusOK, 3*time.Millisecond)
	m.RecordRequest(ctx, http.MethodGet, "/api/v1/dashboard/stats", http.StatusServiceUnavailable, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, "http_server_requests")
	assert.Contains(t, body, `http_route="/api/v1/bins"`)
	assert.Contains(t, body, "http_server_errors")
	assert.Contains(t, body, "http_server_duration_ms")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)

	a.RecordRequest(context.Background(), http.MethodPost, "/api/v1/auth/login", http.StatusOK, time.Millisecond)

	assert.Contains(t, scrape(t, a), `http_route="/api/v1/auth/login"`)
	assert.NotContains(t, scrape(t, b), `http_route="/api/v1/auth/login"`)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, b.Shutdown(context.Background()))
}
