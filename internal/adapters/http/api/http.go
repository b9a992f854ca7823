// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pitchload/internal/adapters/cache"
	"github.com/okian/pitchload/internal/adapters/repository"
	service "github.com/okian/pitchload/internal/app"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
)

const (
	defaultCacheTTL = 30 * time.Second
	retryAfter      = "5"
)

// Analytics is the read side the handlers depend on.
type Analytics interface {
	TrainingLoad(ctx context.Context, teamID *int64, days int) (types.TrainingLoadReport, error)
	InjuryRisk(ctx context.Context, teamID *int64) (types.InjuryRiskReport, error)
	Insights(ctx context.Context, teamID *int64, days int) (types.InsightsBundle, error)
	DefaultWindowDays() int
}

// Ingestion is the write side the handlers depend on.
type Ingestion interface {
	RegisterPlayer(ctx context.Context, p model.PlayerProfile) error
	SubmitSession(ctx context.Context, s model.SessionMetric) (service.Receipt, error)
}

// StatsProvider reports service statistics and repository health.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
	Ping(ctx context.Context) error
}

// Dependencies bundles everything the routes need. *service.Service
// satisfies it.
type Dependencies interface {
	Analytics
	Ingestion
	StatsProvider
}

// Server wires HTTP routes for the analytics API.
type Server struct {
	analyticsHandler *AnalyticsHandler
	ingestHandler    *IngestHandler
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler

	cache    cache.Cache
	cacheTTL time.Duration
	version  string
	logger   logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCache sets the analytics response cache.
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets how long analytics responses stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		cache:    cache.Noop{},
		cacheTTL: defaultCacheTTL,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}

	s.analyticsHandler = NewAnalyticsHandler(deps, s.cache, s.cacheTTL, s.logger)
	s.ingestHandler = NewIngestHandler(deps, s.logger)
	s.healthHandler = NewHealthHandler(deps, s.version)
	s.statsHandler = NewStatsHandler(deps)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/health", s.healthHandler.HandleHealth)
	r.Get("/healthz", s.healthHandler.HandleMetrics)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/training-load", s.analyticsHandler.HandleTrainingLoad)
		r.Get("/injury-risk", s.analyticsHandler.HandleInjuryRisk)
		r.Get("/insights", s.analyticsHandler.HandleInsights)
	})

	r.Post("/players", s.ingestHandler.HandlePostPlayer)
	r.Post("/sessions", s.ingestHandler.HandlePostSession)
}

// NewRouter returns a chi router with the standard middleware stack and
// the API routes.
func (s *Server) NewRouter(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	// Metrics wrap the recoverer so recovered panics are counted as 500s.
	r.Use(MetricsMiddleware)
	r.Use(RecoverMiddleware(s.logger))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", retryAfter)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps service errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidWindow):
		return http.StatusBadRequest, "invalid_window"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrUnknownPlayer), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "unknown_player"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrRepositoryUnavailable), errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, "repository_unavailable"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
