package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := NewServer(":0", stubPinger{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("database down", func(t *testing.T) {
		srv := NewServer(":0", stubPinger{err: errors.New("connection refused")})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ObserveOperation("transfer", "ok", 15*time.Millisecond)
	TheftAttempts.WithLabelValues("success").Inc()

	srv := NewServer(":0", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `heist_operations_total{operation="transfer",result="ok"}`))
	assert.True(t, strings.Contains(body, `heist_theft_attempts_total{result="success"}`))
}
