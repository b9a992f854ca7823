// Package repository defines the metrics repository ports and their
// memory and SQL backends.
package repository

import (
	"context"
	"time"

	"github.com/okian/pitchload/internal/domain/model"
)

// Reader is the read path the analytics core consumes. Implementations
// must be safe for concurrent use.
type Reader interface {
	// GetSessions returns the player's sessions dated at or after since,
	// ordered by date.
	GetSessions(ctx context.Context, playerID int64, since time.Time) ([]model.SessionMetric, error)
	// GetRoster returns the players of teamID, or all players when teamID
	// is nil, ordered by id.
	GetRoster(ctx context.Context, teamID *int64) ([]model.PlayerProfile, error)
	// GetPlayer returns a single player or ErrNotFound.
	GetPlayer(ctx context.Context, playerID int64) (model.PlayerProfile, error)
}

// Writer is the ingestion path.
type Writer interface {
	// UpsertPlayer creates or replaces a player profile.
	UpsertPlayer(ctx context.Context, p model.PlayerProfile) error
	// AppendSession stores a session. Re-appending a known session id is a
	// no-op. Returns ErrNotFound when the player is unknown.
	AppendSession(ctx context.Context, s model.SessionMetric) error
	// Count returns the number of stored players and sessions.
	Count(ctx context.Context) (players, sessions int, err error)
}

// Store combines both paths with a lifecycle.
type Store interface {
	Reader
	Writer
	Close() error
}
