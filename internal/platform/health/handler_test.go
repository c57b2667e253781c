package health_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homehelp/internal/platform/health"
)

func newRouter(h *health.Handler) *chi.Mux {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveness(t *testing.T) {
	rec, body := get(t, newRouter(health.New("test")), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}

func TestStatus(t *testing.T) {
	rec, body := get(t, newRouter(health.New("test")), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "homehelp-verification", body["service"])
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestReadinessAllUp(t *testing.T) {
	h := health.New("test")
	h.RegisterCheck("database", func() error { return nil })

	rec, body := get(t, newRouter(h), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ready"])
}

func TestReadinessDependencyDown(t *testing.T) {
	h := health.New("test")
	h.RegisterCheck("redis", func() error { return errors.New("dial tcp: connection refused") })
	h.RegisterCheck("database", func() error { return nil })

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Ready        bool `json:"ready"`
		Dependencies []struct {
			Name  string `json:"name"`
			Up    bool   `json:"up"`
			Error string `json:"error"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	require.Len(t, body.Dependencies, 2)

	// Sorted by name so the body is stable across runs.
	assert.Equal(t, "database", body.Dependencies[0].Name)
	assert.True(t, body.Dependencies[0].Up)
	assert.Equal(t, "redis", body.Dependencies[1].Name)
	assert.False(t, body.Dependencies[1].Up)
	assert.Contains(t, body.Dependencies[1].Error, "connection refused")
}
