// Package cache provides the short-lived analytics response cache owned by
// the HTTP layer. Analyzers never see it.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded responses by key. Backend failures are reported as
// misses; they never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Backend names the implementation for metrics and logs.
	Backend() string
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Backend() string                                    { return "none" }
