package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("player not found")
	ErrUnavailable   = errors.New("repository unavailable")
	ErrInvalidRecord = errors.New("invalid record")
)
