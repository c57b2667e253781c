// Package health serves the verification service's probe endpoints: liveness
// for the process itself, readiness over the registered stores (Postgres,
// Redis), and a status summary with build and uptime details.
package health

import (
	"maps"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"homehelp/pkg/platform/httputil"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

const serviceName = "homehelp-verification"

// CheckFunc probes one dependency. A nil return means the dependency is
// reachable; the error text is surfaced verbatim in the readiness body.
type CheckFunc func() error

// Handler serves the probe endpoints.
type Handler struct {
	started     time.Time
	environment string

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a probe handler for the given deployment environment.
func New(environment string) *Handler {
	return &Handler{
		started:     time.Now(),
		environment: environment,
		checks:      make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency probe to the readiness endpoint.
// Unconfigured dependencies are simply never registered, so a dev instance
// without Postgres still reports ready.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.status)
	r.Get("/health/live", h.liveness)
	r.Get("/health/ready", h.readiness)
}

func (h *Handler) liveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

type dependencyStatus struct {
	Name  string `json:"name"`
	Up    bool   `json:"up"`
	Error string `json:"error,omitempty"`
}

type readinessResponse struct {
	Ready        bool               `json:"ready"`
	Dependencies []dependencyStatus `json:"dependencies,omitempty"`
}

// readiness runs every registered probe and returns 503 if any dependency is
// down. Dependencies are listed in name order so the body is stable.
func (h *Handler) readiness(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	maps.Copy(checks, h.checks)
	h.mu.RUnlock()

	resp := readinessResponse{Ready: true}
	for name, check := range checks {
		dep := dependencyStatus{Name: name, Up: true}
		if err := check(); err != nil {
			dep.Up = false
			dep.Error = err.Error()
			resp.Ready = false
		}
		resp.Dependencies = append(resp.Dependencies, dep)
	}
	sort.Slice(resp.Dependencies, func(i, j int) bool {
		return resp.Dependencies[i].Name < resp.Dependencies[j].Name
	})

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, resp)
}

type statusResponse struct {
	Service       string `json:"service"`
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Service:       serviceName,
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
