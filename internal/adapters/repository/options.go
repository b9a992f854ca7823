package repository

import (
	"time"

	"github.com/okian/pitchload/pkg/logger"
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// GormOption applies a configuration option to the GormStore.
type GormOption func(*GormStore)

// WithMaxOpenConns bounds the SQL connection pool.
func WithMaxOpenConns(n int) GormOption {
	return func(s *GormStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithGormLogger sets the logger for the SQL store.
func WithGormLogger(l logger.Logger) GormOption {
	return func(s *GormStore) {
		if l != nil {
			s.log = l
		}
	}
}

// GuardOption applies a configuration option to the GuardedReader.
type GuardOption func(*GuardedReader)

// WithTimeout bounds each guarded call.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *GuardedReader) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit throttles reads to rps with the given burst. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) GuardOption {
	return func(g *GuardedReader) {
		g.rps = rps
		if burst > 0 {
			g.burst = burst
		}
	}
}

// WithBreaker configures the circuit breaker: it opens after maxFailures
// consecutive failures and probes again after openTimeout.
func WithBreaker(maxFailures int, openTimeout time.Duration) GuardOption {
	return func(g *GuardedReader) {
		if maxFailures > 0 {
			g.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			g.openTimeout = openTimeout
		}
	}
}

// WithGuardLogger sets the logger for breaker transitions.
func WithGuardLogger(l logger.Logger) GuardOption {
	return func(g *GuardedReader) {
		if l != nil {
			g.log = l
		}
	}
}
