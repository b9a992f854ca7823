// Package service wires the analytics core to the repository and exposes the
// operations the HTTP API depends on.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/pitchload/internal/adapters/mq/queue"
	"github.com/okian/pitchload/internal/adapters/mq/worker"
	"github.com/okian/pitchload/internal/adapters/repository"
	"github.com/okian/pitchload/internal/config"
	"github.com/okian/pitchload/internal/domain/dedupe"
	"github.com/okian/pitchload/internal/domain/load"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/risk"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	defaultConcurrency       = 8
	defaultRepositoryTimeout = 2 * time.Second
	defaultWindowDays        = 7
	defaultRiskWindowDays    = 14
	defaultMaxWindowDays     = 365
	defaultQueueSize         = 10_000
	defaultDedupeSize        = 100_000
	stopTimeout              = 30 * time.Second
)

// Service implements the analytics queries and the ingestion path.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	reader repository.Reader

	loads *load.Analyzer
	risks *risk.Analyzer

	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	concurrency       int
	repositoryTimeout time.Duration
	defaultDays       int
	riskDays          int
	maxDays           int
	workerCount       int
	queueSize         int
	dedupeSize        int
	now               func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithReader routes analytics reads through r, typically a guarded wrapper
// around the store.
func WithReader(r repository.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithLoadAnalyzer replaces the load analyzer.
func WithLoadAnalyzer(a *load.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.loads = a
		}
	}
}

// WithRiskAnalyzer replaces the risk analyzer.
func WithRiskAnalyzer(a *risk.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.risks = a
		}
	}
}

// WithConcurrency bounds the number of players analyzed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRepositoryTimeout bounds each repository call.
func WithRepositoryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.repositoryTimeout = d
		}
	}
}

// WithWindows sets the default load window, the injury-risk window and the
// largest accepted window, all in days.
func WithWindows(defaultDays, riskDays, maxDays int) Option {
	return func(s *Service) {
		if defaultDays > 0 {
			s.defaultDays = defaultDays
		}
		if riskDays > 0 {
			s.riskDays = riskDays
		}
		if maxDays > 0 {
			s.maxDays = maxDays
		}
	}
}

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many session ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock sets the time source that anchors analysis windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies every service-related setting of cfg, including the
// analyzer tuning.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		opts := []Option{
			WithConcurrency(cfg.AnalysisConcurrency),
			WithRepositoryTimeout(cfg.RepositoryTimeout()),
			WithWindows(cfg.DefaultWindowDays, cfg.RiskWindowDays, cfg.MaxWindowDays),
			WithWorkerCount(cfg.WorkerCount),
			WithQueueSize(cfg.QueueSize),
			WithDedupeSize(cfg.DedupeSize),
			WithLoadAnalyzer(load.NewAnalyzer(
				load.WithBaselineMinutesPerDay(cfg.LoadBaselineMinutesPerDay),
				load.WithWeights(cfg.LoadVolumeWeight, cfg.LoadIntensityWeight),
			)),
			WithRiskAnalyzer(risk.NewAnalyzer(
				risk.WithThresholds(risk.Thresholds{
					SeniorAge:           cfg.RiskSeniorAge,
					JuniorAge:           cfg.RiskJuniorAge,
					VolumeMinutesPerDay: cfg.RiskVolumeMinutesPerDay,
					AvgHeartRate:        cfg.RiskAvgHeartRate,
					SprintsPerDay:       cfg.RiskSprintsPerDay,
					SessionsPerWeek:     cfg.RiskSessionsPerWeek,
				}),
				risk.WithFactorPoints(factorPoints(cfg.RiskFactorPoints)),
			)),
		}
		for _, opt := range opts {
			opt(s)
		}
	}
}

func factorPoints(in map[string]int) map[types.RiskFactor]float64 {
	out := make(map[types.RiskFactor]float64, len(in))
	for name, p := range in {
		out[types.RiskFactor(name)] = float64(p)
	}
	return out
}

// New constructs a Service over store. Analytics read from store unless
// WithReader supplies a wrapper.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		reader:            store,
		concurrency:       defaultConcurrency,
		repositoryTimeout: defaultRepositoryTimeout,
		defaultDays:       defaultWindowDays,
		riskDays:          defaultRiskWindowDays,
		maxDays:           defaultMaxWindowDays,
		workerCount:       runtime.NumCPU(),
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.loads == nil {
		s.loads = load.NewAnalyzer()
	}
	if s.risks == nil {
		s.risks = risk.NewAnalyzer()
	}
	return s
}

// Start creates the ingestion queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	deduper := s.deduper
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithFailureHook(func(m model.SessionMetric, _ error) {
			// A failed write may be retried by resubmitting.
			deduper.Unrecord(context.Background(), m.SessionID)
		}),
	)
	// Workers outlive the start request.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "analytics service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("concurrency", s.concurrency),
	)
	return nil
}

// Stop closes the ingestion queue and waits for buffered sessions to be
// written. The store itself is left open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping analytics service")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Error(ctx, "ingestion drain incomplete", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "analytics service stopped",
		logger.Int64("processed", s.pool.Processed()),
	)
	return nil
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started          bool  `json:"started"`
	WorkerCount      int   `json:"worker_count"`
	QueueLength      int   `json:"queue_length"`
	QueueCapacity    int   `json:"queue_capacity"`
	DedupeSize       int64 `json:"dedupe_size"`
	SessionsWritten  int64 `json:"sessions_written"`
	Players          int   `json:"players"`
	Sessions         int   `json:"sessions"`
	DefaultDays      int   `json:"default_window_days"`
	RiskDays         int   `json:"risk_window_days"`
	MaxDays          int   `json:"max_window_days"`
	AnalysisParallel int   `json:"analysis_concurrency"`
}

// GetStats returns service statistics for monitoring. Store counts are
// left at zero when the store cannot be read.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:          s.started,
		WorkerCount:      s.workerCount,
		QueueCapacity:    s.queueSize,
		DefaultDays:      s.defaultDays,
		RiskDays:         s.riskDays,
		MaxDays:          s.maxDays,
		AnalysisParallel: s.concurrency,
	}
	if s.started {
		st.QueueLength = s.queue.Len()
		st.DedupeSize = s.deduper.Size()
		st.SessionsWritten = s.pool.Processed()
	}

	ctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	defer cancel()
	players, sessions, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store count failed", logger.Error(err))
		return st
	}
	st.Players, st.Sessions = players, sessions
	metrics.UpdateRepositoryRecords(players, sessions)
	return st
}

// Ping reports whether the store answers within the repository timeout.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	defer cancel()
	_, _, err := s.store.Count(ctx)
	return err
}

// DefaultWindowDays is the window used when a load query omits days.
func (s *Service) DefaultWindowDays() int { return s.defaultDays }
