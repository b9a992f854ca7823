package api

import (
	"net/http"
)

// StatsHandler serves GET /stats: ingestion and store counters used by
// operators and the seeder to watch ingestion settle.
type StatsHandler struct {
	deps StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsProvider) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats writes the current service statistics. The response is never cached.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.deps.GetStats(r.Context()))
}
