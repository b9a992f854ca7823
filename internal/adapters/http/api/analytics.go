package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/pitchload/internal/adapters/cache"
	"github.com/okian/pitchload/pkg/logger"
)

// CacheHeader reports whether an analytics response came from the cache.
const CacheHeader = "X-Cache"

// AnalyticsHandler serves the three analytics queries through the response
// cache.
type AnalyticsHandler struct {
	deps   Analytics
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps Analytics, c cache.Cache, ttl time.Duration, l logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps, cache: c, ttl: ttl, logger: l}
}

// HandleTrainingLoad handles GET /analytics/training-load?team_id&days.
func (h *AnalyticsHandler) HandleTrainingLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.training_load"
	q, err := h.parse(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.serve(w, r, op, "training-load", q, func(ctx context.Context) (any, bool, error) {
		rep, err := h.deps.TrainingLoad(ctx, q.teamID, q.days)
		return rep, rep.PlayersOmitted > 0, err
	})
}

// HandleInjuryRisk handles GET /analytics/injury-risk?team_id. The window is
// fixed by configuration.
func (h *AnalyticsHandler) HandleInjuryRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.injury_risk"
	q, err := h.parse(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.serve(w, r, op, "injury-risk", q, func(ctx context.Context) (any, bool, error) {
		rep, err := h.deps.InjuryRisk(ctx, q.teamID)
		return rep, rep.PlayersOmitted > 0, err
	})
}

// HandleInsights handles GET /analytics/insights?team_id&days.
func (h *AnalyticsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.insights"
	q, err := h.parse(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.serve(w, r, op, "insights", q, func(ctx context.Context) (any, bool, error) {
		b, err := h.deps.Insights(ctx, q.teamID, q.days)
		return b, b.Summary.PlayersOmitted > 0, err
	})
}

type analyticsQuery struct {
	teamID *int64
	days   int
}

func (q analyticsQuery) key(endpoint string) string {
	team := "all"
	if q.teamID != nil {
		team = strconv.FormatInt(*q.teamID, 10)
	}
	return fmt.Sprintf("%s?team_id=%s&days=%d", endpoint, team, q.days)
}

func (h *AnalyticsHandler) parse(r *http.Request, withDays bool) (analyticsQuery, error) {
	values := r.URL.Query()
	var q analyticsQuery

	if raw := values.Get("team_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("team_id must be an integer: %q", raw)
		}
		q.teamID = &id
	}

	if !withDays {
		return q, nil
	}
	q.days = h.deps.DefaultWindowDays()
	if raw := values.Get("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("days must be an integer: %q", raw)
		}
		q.days = d
	}
	return q, nil
}

// serve answers from the cache or computes the result. compute reports
// whether the result omits players.
func (h *AnalyticsHandler) serve(w http.ResponseWriter, r *http.Request, op, endpoint string, q analyticsQuery, compute func(context.Context) (any, bool, error)) {
	ctx := r.Context()
	key := q.key(endpoint)

	if body, ok := h.cache.Get(ctx, key); ok {
		w.Header().Set(CacheHeader, "HIT")
		writeRaw(w, http.StatusOK, body)
		return
	}

	result, partial, err := compute(ctx)
	if err != nil {
		status, code := statusFor(err)
		if status >= statusInternalError {
			h.logger.Error(ctx, "analytics request failed",
				logger.String("op", op),
				logger.String("request_id", RequestID(ctx)),
				logger.Error(err),
			)
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	// Partial results are served but not cached so the next request retries
	// the omitted players.
	if !partial {
		h.cache.Set(ctx, key, body, h.ttl)
	}

	w.Header().Set(CacheHeader, "MISS")
	writeRaw(w, http.StatusOK, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
