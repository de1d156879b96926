// Package health provides liveness and readiness endpoints for the API server.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 3 * time.Second

// Pinger defines the interface for checking a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Checker serves /health, /live and /ready.
type Checker struct {
	serviceName string
	version     string
	commit      string
	logger      *logrus.Logger

	mu     sync.RWMutex
	ready  bool
	checks map[string]Pinger
}

// Config holds the configuration for the health checker.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Logger      *logrus.Logger
}

// NewChecker creates a new health checker. It starts out not ready.
func NewChecker(cfg Config) *Checker {
	return &Checker{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		logger:      cfg.Logger,
		checks:      make(map[string]Pinger),
	}
}

// AddCheck registers a dependency checked by /ready.
func (c *Checker) AddCheck(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = p
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns whether the service is ready.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Register mounts the health endpoints on mux.
func (c *Checker) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/live", c.handleLive)
	mux.HandleFunc("/ready", c.handleReady)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (c *Checker) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   c.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
		Commit:    c.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness check.
func (c *Checker) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: c.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks every registered dependency.
func (c *Checker) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !c.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	pingers := make(map[string]Pinger, len(c.checks))
	for name, p := range c.checks {
		names = append(names, name)
		pingers[name] = p
	}
	c.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := pingers[name].Ping(ctx)
		cancel()
		if err != nil {
			allHealthy = false
			checks[name] = fmt.Sprintf("error: %v", err)
			if c.logger != nil {
				c.logger.WithError(err).WithField("check", name).Warn("Readiness check failed")
			}
			continue
		}
		checks[name] = "ok"
	}

	response := ReadyResponse{
		Service:  c.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	if allHealthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
