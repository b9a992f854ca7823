package cache

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/okian/pitchload/pkg/logger"
)

// Sweepable is a cache whose expired entries need explicit removal.
type Sweepable interface {
	Sweep() int
}

// Sweeper evicts expired entries on a cron schedule.
type Sweeper struct {
	cron   *cron.Cron
	target Sweepable
	log    logger.Logger
}

// NewSweeper registers target on schedule, a standard cron spec or a
// descriptor such as "@every 1m".
func NewSweeper(target Sweepable, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		target: target,
		log:    logger.Named("cache_sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) run() {
	if n := s.target.Sweep(); n > 0 {
		s.log.Debug(context.Background(), "evicted expired cache entries", logger.Int("count", n))
	}
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
