package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/metrics"
)

// MemStore is an in-memory Store guarded by a RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	players  map[int64]model.PlayerProfile
	sessions map[int64][]model.SessionMetric // per player, ordered by date
	ids      map[string]struct{}
	total    int

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

// NewMemStore constructs an empty store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		players:               make(map[int64]model.PlayerProfile),
		sessions:              make(map[int64][]model.SessionMetric),
		ids:                   make(map[string]struct{}),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemStore) GetSessions(ctx context.Context, playerID int64, since time.Time) ([]model.SessionMetric, error) {
	defer observe("get_sessions", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessions[playerID]
	i, _ := slices.BinarySearchFunc(all, since, func(m model.SessionMetric, t time.Time) int {
		return m.Date.Compare(t)
	})
	return slices.Clone(all[i:]), nil
}

func (s *MemStore) GetRoster(ctx context.Context, teamID *int64) ([]model.PlayerProfile, error) {
	defer observe("get_roster", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.PlayerProfile, 0, len(s.players))
	for _, p := range s.players {
		if teamID != nil && (p.TeamID == nil || *p.TeamID != *teamID) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.PlayerProfile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemStore) GetPlayer(ctx context.Context, playerID int64) (model.PlayerProfile, error) {
	defer observe("get_player", time.Now())
	if err := ctx.Err(); err != nil {
		return model.PlayerProfile{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok {
		return model.PlayerProfile{}, fmt.Errorf("%w: %d", ErrNotFound, playerID)
	}
	return p, nil
}

func (s *MemStore) UpsertPlayer(ctx context.Context, p model.PlayerProfile) error {
	defer observe("upsert_player", time.Now())
	if p.ID <= 0 {
		return fmt.Errorf("%w: player id must be positive", ErrInvalidRecord)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.players[p.ID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemStore) AppendSession(ctx context.Context, m model.SessionMetric) error {
	defer observe("append_session", time.Now())
	if m.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRecord)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[m.PlayerID]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, m.PlayerID)
	}
	if _, dup := s.ids[m.SessionID]; dup {
		return nil
	}
	list := s.sessions[m.PlayerID]
	i, _ := slices.BinarySearchFunc(list, m.Date, func(x model.SessionMetric, t time.Time) int {
		// insert after equal dates to keep arrival order
		if x.Date.After(t) {
			return 1
		}
		return -1
	})
	s.sessions[m.PlayerID] = slices.Insert(list, i, m)
	s.ids[m.SessionID] = struct{}{}
	s.total++
	return nil
}

func (s *MemStore) Count(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), s.total, nil
}

// Close stops the metrics updater.
func (s *MemStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				players, sessions, _ := s.Count(ctx)
				metrics.UpdateRepositoryRecords(players, sessions)
			}
		}
	}()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
