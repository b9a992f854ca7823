package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pitchload/pkg/metrics"
)

// HealthHandler handles liveness and metrics requests.
type HealthHandler struct {
	deps    StatsProvider
	version string
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps StatsProvider, version string) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		version: version,
		// Use our custom metrics registry to serve metrics
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Repository string `json:"repository"`
}

// HandleHealth handles GET /health. It answers 503 when the repository does
// not respond.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: h.version, Repository: "ok"}
	status := http.StatusOK
	if err := h.deps.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Repository = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HandleMetrics handles GET /healthz with the Prometheus exposition format.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
