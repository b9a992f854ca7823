package service

import (
	"errors"

	"github.com/okian/pitchload/internal/domain/model"
)

var (
	// ErrInvalidWindow reports a non-positive or oversized window length.
	ErrInvalidWindow = model.ErrInvalidWindow
	// ErrRepositoryUnavailable means the roster could not be read. Retryable.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	// ErrInvalidRecord rejects a malformed player or session submission.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownPlayer rejects a session for a player that was never registered.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrBackpressure means the ingestion queue is full. Retryable.
	ErrBackpressure = errors.New("ingestion queue full")
	// ErrNotStarted means ingestion was attempted while the service is stopped.
	ErrNotStarted = errors.New("service not started")
)
