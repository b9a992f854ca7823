package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// Guard defaults.
const (
	defaultGuardTimeout     = 2 * time.Second
	defaultGuardBurst       = 64
	defaultGuardMaxFailures = 5
	defaultGuardOpenTimeout = 10 * time.Second
	breakerName             = "repository"
)

// GuardedReader decorates a Reader with a per-call timeout, a token-bucket
// rate limit and a circuit breaker. An open breaker fails fast with
// ErrUnavailable.
type GuardedReader struct {
	next        Reader
	timeout     time.Duration
	rps         float64
	burst       int
	maxFailures int
	openTimeout time.Duration
	log         logger.Logger

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedReader wraps next.
func NewGuardedReader(next Reader, opts ...GuardOption) *GuardedReader {
	g := &GuardedReader{
		next:        next,
		timeout:     defaultGuardTimeout,
		burst:       defaultGuardBurst,
		maxFailures: defaultGuardMaxFailures,
		openTimeout: defaultGuardOpenTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Named("repository_guard")
	}
	if g.rps > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(g.rps), g.burst)
	}

	maxFailures := uint32(g.maxFailures) //nolint:gosec // validated positive
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     g.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, int(to))
		},
		// Misses and caller cancellations say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})
	metrics.UpdateBreakerState(breakerName, int(gobreaker.StateClosed))
	return g
}

// State returns the breaker state.
func (g *GuardedReader) State() gobreaker.State {
	return g.breaker.State()
}

func (g *GuardedReader) GetSessions(ctx context.Context, playerID int64, since time.Time) ([]model.SessionMetric, error) {
	v, err := g.do(ctx, "get_sessions", func(ctx context.Context) (interface{}, error) {
		return g.next.GetSessions(ctx, playerID, since)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.SessionMetric), nil
}

func (g *GuardedReader) GetRoster(ctx context.Context, teamID *int64) ([]model.PlayerProfile, error) {
	v, err := g.do(ctx, "get_roster", func(ctx context.Context) (interface{}, error) {
		return g.next.GetRoster(ctx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.PlayerProfile), nil
}

func (g *GuardedReader) GetPlayer(ctx context.Context, playerID int64) (model.PlayerProfile, error) {
	v, err := g.do(ctx, "get_player", func(ctx context.Context) (interface{}, error) {
		return g.next.GetPlayer(ctx, playerID)
	})
	if err != nil {
		return model.PlayerProfile{}, err
	}
	return v.(model.PlayerProfile), nil
}

func (g *GuardedReader) do(ctx context.Context, op string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			metrics.RecordRepositoryError(op)
			return nil, fmt.Errorf("%w: %s: rate limit: %w", ErrUnavailable, op, err)
		}
	}

	v, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordRepositoryError(op)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	case errors.Is(err, ErrNotFound):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordRepositoryError(op)
		return nil, fmt.Errorf("%w: %s: timed out: %w", ErrUnavailable, op, err)
	default:
		metrics.RecordRepositoryError(op)
		return nil, err
	}
}
