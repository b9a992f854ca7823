package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/pitchload/internal/adapters/cache"
	"github.com/okian/pitchload/internal/adapters/http/api"
	"github.com/okian/pitchload/internal/adapters/http/swagger"
	"github.com/okian/pitchload/internal/adapters/repository"
	service "github.com/okian/pitchload/internal/app"
	"github.com/okian/pitchload/internal/config"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var version = "dev"

func main() {
	// Default Go collectors are replaced by the custom system metrics below.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("pitchload: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close repository", logger.Error(err))
		}
	}()

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := newService(cfg, store)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc, c),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("repository", cfg.RepositoryBackend),
			logger.String("cache", c.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the configured repository backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.RepositoryBackend {
	case config.BackendSQLite, config.BackendPostgres:
		s, err := repository.OpenGormStore(ctx, cfg.RepositoryBackend, cfg.RepositoryDSN,
			repository.WithGormLogger(logger.Named("repository")))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s repository: %w", cfg.RepositoryBackend, err)
		}
		return s, nil
	default:
		return repository.NewMemStore(ctx), nil
	}
}

// openCache builds the analytics response cache and returns its release func.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis cache: %w", err)
		}
		if err := rc.Ping(ctx); err != nil {
			logger.Get().Warn(ctx, "redis unreachable; responses will be computed until it recovers", logger.Error(err))
		}
		return rc, func() { closeQuietly(ctx, rc) }, nil
	case config.CacheNone:
		return cache.Noop{}, func() {}, nil
	default:
		mc := cache.NewMemoryCache()
		sweeper, err := cache.NewSweeper(mc, cfg.CacheSweepSchedule)
		if err != nil {
			return nil, nil, err
		}
		sweeper.Start()
		return mc, sweeper.Stop, nil
	}
}

func newService(cfg *config.Config, store repository.Store) *service.Service {
	guarded := repository.NewGuardedReader(store,
		repository.WithTimeout(cfg.RepositoryTimeout()),
		repository.WithRateLimit(cfg.RepositoryRateLimit, cfg.RepositoryBurst),
		repository.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout()),
	)
	return service.New(store,
		service.WithConfig(cfg),
		service.WithReader(guarded),
		service.WithLogger(logger.Named("service")),
	)
}

func newRouter(ctx context.Context, cfg *config.Config, svc *service.Service, c cache.Cache) chi.Router {
	server := api.NewServer(svc,
		api.WithCache(c),
		api.WithCacheTTL(cfg.CacheTTL()),
		api.WithVersion(version),
		api.WithLogger(logger.Named("http")),
	)
	router := server.NewRouter(ctx)
	swagger.Register(ctx, router)
	return router
}

func closeQuietly(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Get().Error(ctx, "failed to close", logger.Error(err))
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics publishes queue and worker gauges. GetStats itself
// refreshes the repository record counts.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
	metrics.UpdateWorkerCount(stats.WorkerCount)
	if stats.QueueCapacity > 0 {
		metrics.UpdateQueueUtilization(float64(stats.QueueLength) / float64(stats.QueueCapacity))
	}
}
