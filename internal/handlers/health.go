package handlers

import (
	"net/http"
	"runtime"
	"time"

	"video-fetcher/internal/logging"
	"video-fetcher/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	FetchEnabled bool   `json:"fetchEnabled"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	TotalFetches int `json:"totalFetches,omitempty"`
	Completed    int `json:"completed,omitempty"`
	Failed       int `json:"failed,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.db.Ping(r.Context()) == nil

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		FetchEnabled: h.fetcher.Enabled(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if response.FetchEnabled {
		response.Status = statusHealthy
	} else {
		// Serving history still works without a writable store
		response.Status = statusDegraded
	}

	if stats, err := h.db.GetStats(); err == nil {
		response.TotalFetches = stats.TotalFetches
		response.Completed = stats.Completed
		response.Failed = stats.Failed
	} else {
		logging.Warn("health: failed to read stats: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.db.Ping(r.Context()) == nil {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{"status": "ready"})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
	}
}

// GetVersion returns build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}

// Root answers the bare root path with a running indicator.
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "running")
}
