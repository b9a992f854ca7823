package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/pitchload/internal/adapters/mq/queue"
	"github.com/okian/pitchload/internal/adapters/repository"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// SubmitStatus is the outcome of a session submission.
type SubmitStatus string

// Submission outcomes.
const (
	SubmitAccepted  SubmitStatus = "accepted"
	SubmitDuplicate SubmitStatus = "duplicate"
)

// Receipt acknowledges a session submission.
type Receipt struct {
	SessionID string       `json:"session_id"`
	Status    SubmitStatus `json:"status"`
}

// RegisterPlayer creates or replaces a player profile.
func (s *Service) RegisterPlayer(ctx context.Context, p model.PlayerProfile) error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: player id must be positive", ErrInvalidRecord)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidRecord)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: age must not be negative", ErrInvalidRecord)
	}

	ctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	defer cancel()
	if err := s.store.UpsertPlayer(ctx, p); err != nil {
		return fmt.Errorf("register player %d: %w", p.ID, err)
	}
	s.logger.Debug(ctx, "player registered", logger.Int64("player_id", p.ID))
	return nil
}

// SubmitSession validates m and queues it for storage. A blank session id is
// replaced with a generated one. Resubmitting a known session id is
// acknowledged as a duplicate without being queued again.
func (s *Service) SubmitSession(ctx context.Context, m model.SessionMetric) (Receipt, error) { //nolint:gocritic // hugeParam: copied into the queue
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	if m.SessionID == "" {
		m.SessionID = uuid.NewString()
	}
	if err := validateSession(m); err != nil {
		metrics.RecordSessionRejected("invalid")
		return Receipt{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	_, err := s.store.GetPlayer(pctx, m.PlayerID)
	cancel()
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordSessionRejected("unknown_player")
		return Receipt{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, m.PlayerID)
	case err != nil:
		return Receipt{}, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	receipt := Receipt{SessionID: m.SessionID, Status: SubmitAccepted}
	if s.deduper.SeenAndRecord(ctx, m.SessionID) {
		metrics.RecordSessionDuplicate()
		receipt.Status = SubmitDuplicate
		return receipt, nil
	}

	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.deduper.Unrecord(ctx, m.SessionID)
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			metrics.RecordSessionRejected("backpressure")
			return Receipt{}, ErrBackpressure
		case errors.Is(err, queue.ErrQueueClosed):
			return Receipt{}, ErrNotStarted
		default:
			return Receipt{}, fmt.Errorf("enqueue session %s: %w", m.SessionID, err)
		}
	}
	return receipt, nil
}

func validateSession(m model.SessionMetric) error { //nolint:gocritic // hugeParam: read-only
	if m.PlayerID <= 0 {
		return fmt.Errorf("%w: player id must be positive", ErrInvalidRecord)
	}
	if m.Date.IsZero() {
		return fmt.Errorf("%w: session date is required", ErrInvalidRecord)
	}
	if reason := m.Check(); reason != model.SkipNone {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, reason)
	}
	return nil
}
