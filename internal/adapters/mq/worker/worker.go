// Package worker drains accepted session records from the ingestion queue
// into the metrics repository.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/pitchload/internal/adapters/repository"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Writer persists a session record.
type Writer interface {
	AppendSession(ctx context.Context, s model.SessionMetric) error
}

// Source yields records to process. The channel is closed when the source
// is closed and drained.
type Source interface {
	Dequeue() <-chan model.SessionMetric
}

// FailureHook is called for every record that could not be stored.
type FailureHook func(s model.SessionMetric, err error)

// Worker drains a Source into a Writer.
type Worker interface {
	// Run processes records until the source is drained or ctx is canceled.
	Run(ctx context.Context)
	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for a single goroutine.
type InMemoryWorker struct {
	source    Source
	writer    Writer
	name      string
	onFailure FailureHook
	processed *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from source and writing to writer.
func NewInMemoryWorker(source Source, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:    source,
		writer:    writer,
		name:      "worker",
		processed: new(atomic.Int64),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, s); err != nil {
				if w.onFailure != nil {
					w.onFailure(s, err)
				}
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown waits for the worker loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of records this worker stored.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

func (w *InMemoryWorker) process(ctx context.Context, s model.SessionMetric) error { //nolint:gocritic // hugeParam: records arrive by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	err := w.writer.AppendSession(ctx, s)
	switch {
	case err == nil:
		metrics.RecordSessionIngested()
		return nil
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordSessionRejected("unknown_player")
		w.logger.Warn(ctx, "session for unknown player dropped",
			logger.String("session_id", s.SessionID),
			logger.Int64("player_id", s.PlayerID),
		)
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		w.logger.Error(ctx, "storing session failed",
			logger.String("session_id", s.SessionID),
			logger.Error(err),
		)
	}
	return fmt.Errorf("append session %s: %w", s.SessionID, err)
}

// Pool manages multiple workers sharing one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	logger  logger.Logger

	stop     chan struct{}
	lastSeen int64
	lastTick time.Time
}

// NewPool creates count workers. A count below one uses runtime.NumCPU().
func NewPool(count int, source Source, writer Writer, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, count),
		source:   source,
		logger:   logger.Get().Named("worker-pool"),
		stop:     make(chan struct{}),
		lastTick: time.Now(),
	}
	for i := 0; i < count; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(source, writer, workerOpts...)
	}

	metrics.UpdateWorkerCount(count)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Start launches every worker and the throughput reporter.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.reportThroughput(ctx)
}

// Processed returns the number of records stored across all workers.
func (p *Pool) Processed() int64 {
	var total int64
	for _, w := range p.workers {
		total += w.Processed()
	}
	return total
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

func (p *Pool) reportThroughput(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	total := p.Processed()
	if elapsed := now.Sub(p.lastTick).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(total-p.lastSeen) / elapsed)
	}
	p.lastSeen = total
	p.lastTick = now
}

// Shutdown closes the source when it supports it and waits for the workers
// to drain what is already buffered.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.stop)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = true
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
