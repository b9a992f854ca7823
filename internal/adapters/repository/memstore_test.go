package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitchload/internal/domain/model"
)

var baseDay = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func teamPtr(id int64) *int64 { return &id }

func TestMemStore_Roster(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	defer func() { _ = store.Close() }()

	for _, p := range []model.PlayerProfile{
		{ID: 3, Name: "C", TeamID: teamPtr(1)},
		{ID: 1, Name: "A", TeamID: teamPtr(1)},
		{ID: 2, Name: "B", TeamID: teamPtr(2)},
		{ID: 4, Name: "D"},
	} {
		if err := store.UpsertPlayer(ctx, p); err != nil {
			t.Fatalf("upsert %d: %v", p.ID, err)
		}
	}

	all, err := store.GetRoster(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if all[i].ID != want {
			t.Errorf("roster[%d]: expected id %d, got %d", i, want, all[i].ID)
		}
	}

	team, err := store.GetRoster(ctx, teamPtr(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(team) != 2 || team[0].ID != 1 || team[1].ID != 3 {
		t.Errorf("expected team 1 to be [1 3], got %+v", team)
	}

	if err := store.UpsertPlayer(ctx, model.PlayerProfile{ID: 1, Name: "A2"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	p, err := store.GetPlayer(ctx, 1)
	if err != nil || p.Name != "A2" {
		t.Errorf("expected replaced profile, got %+v (%v)", p, err)
	}

	if _, err := store.GetPlayer(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpsertPlayer(ctx, model.PlayerProfile{ID: 0}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestMemStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	defer func() { _ = store.Close() }()

	if err := store.UpsertPlayer(ctx, model.PlayerProfile{ID: 1}); err != nil {
		t.Fatal(err)
	}

	// Insert out of order.
	for i, d := range []int{5, 1, 3, 3, 0} {
		s := model.SessionMetric{SessionID: fmt.Sprintf("s-%d", i), PlayerID: 1, Date: baseDay.AddDate(0, 0, d)}
		if err := store.AppendSession(ctx, s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.GetSessions(ctx, 1, baseDay.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions since day 3, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Errorf("sessions not ordered by date: %v before %v", got[i].Date, got[i-1].Date)
		}
	}

	none, err := store.GetSessions(ctx, 42, baseDay)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no sessions for unknown player, got %d (%v)", len(none), err)
	}

	if err := store.AppendSession(ctx, model.SessionMetric{SessionID: "x", PlayerID: 42}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown player, got %v", err)
	}
	if err := store.AppendSession(ctx, model.SessionMetric{PlayerID: 1}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for missing id, got %v", err)
	}

	dup := model.SessionMetric{SessionID: "dup", PlayerID: 1, Date: baseDay}
	_ = store.AppendSession(ctx, dup)
	_ = store.AppendSession(ctx, dup)

	players, sessions, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if players != 1 || sessions != 6 {
		t.Errorf("expected 1 player and 6 sessions, got %d and %d", players, sessions)
	}
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	defer func() { _ = store.Close() }()

	_ = store.UpsertPlayer(ctx, model.PlayerProfile{ID: 1})
	_ = store.AppendSession(ctx, model.SessionMetric{SessionID: "a", PlayerID: 1, Date: baseDay, DurationMinutes: 60})

	got, _ := store.GetSessions(ctx, 1, baseDay)
	got[0].DurationMinutes = -1

	again, _ := store.GetSessions(ctx, 1, baseDay)
	if again[0].DurationMinutes != 60 {
		t.Errorf("store state was mutated through a returned slice")
	}
}

func TestMemStore_CancelledContext(t *testing.T) {
	store := NewMemStore(context.Background())
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.GetRoster(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	defer func() { _ = store.Close() }()

	for id := int64(1); id <= 10; id++ {
		_ = store.UpsertPlayer(ctx, model.PlayerProfile{ID: id})
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s := model.SessionMetric{
					SessionID: fmt.Sprintf("w%d-%d", w, i),
					PlayerID:  int64(1 + i%10),
					Date:      baseDay.Add(time.Duration(i) * time.Hour),
				}
				if err := store.AppendSession(ctx, s); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := store.GetSessions(ctx, int64(1+i%10), baseDay); err != nil {
					t.Errorf("get: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	_, sessions, _ := store.Count(ctx)
	if sessions != 800 {
		t.Errorf("expected 800 sessions, got %d", sessions)
	}
}
