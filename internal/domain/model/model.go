// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window length is not positive.
var ErrInvalidWindow = errors.New("invalid window")

// SessionMetric is one recorded training session of a player.
// Heart-rate fields are zero when not recorded.
type SessionMetric struct {
	SessionID       string    // ingestion idempotency key
	PlayerID        int64     // owning player
	Date            time.Time // session date
	DurationMinutes float64
	DistanceKM      float64
	AvgHeartRate    float64
	MaxHeartRate    float64
	SprintCount     int
}

// HasHeartRate reports whether an average heart rate was recorded.
func (s SessionMetric) HasHeartRate() bool { return s.AvgHeartRate > 0 }

// PlayerProfile holds the player attributes analytics read.
type PlayerProfile struct {
	ID       int64
	Name     string
	Position string
	Age      int // 0 when unknown
	TeamID   *int64
	PhotoURL string
}

// Window is the trailing period [Start, End] that analytics aggregate over.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow returns the window of the given number of days ending at end.
func NewWindow(end time.Time, days int) (Window, error) {
	if days <= 0 {
		return Window{}, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidWindow, days)
	}
	return Window{
		Start: end.Add(-time.Duration(days) * 24 * time.Hour),
		End:   end,
		Days:  days,
	}, nil
}

// Contains reports whether t falls within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// SkipReason names why a session record was rejected.
type SkipReason string

// Skip reasons for malformed session records.
const (
	SkipNone              SkipReason = ""
	SkipNegativeDuration  SkipReason = "negative_duration"
	SkipNegativeDistance  SkipReason = "negative_distance"
	SkipNegativeHeartRate SkipReason = "negative_heart_rate"
	SkipNegativeSprints   SkipReason = "negative_sprint_count"
	SkipMaxBelowAvgHR     SkipReason = "max_below_avg_heart_rate"

	SkipImplausibleDuration  SkipReason = "implausible_duration"
	SkipImplausibleDistance  SkipReason = "implausible_distance"
	SkipImplausibleHeartRate SkipReason = "implausible_heart_rate"
	SkipImplausibleSprints   SkipReason = "implausible_sprint_count"
)

// Per-session upper bounds. Anything above is a corrupt record; the bounds
// also keep window sums far from integer overflow.
const (
	MaxSessionMinutes = 24 * 60
	MaxSessionKM      = 100
	MaxHeartRate      = 250
	MaxSessionSprints = 1000
)

// Check returns the first reason the session is malformed, or SkipNone.
func (s SessionMetric) Check() SkipReason {
	switch {
	case s.DurationMinutes < 0:
		return SkipNegativeDuration
	case s.DistanceKM < 0:
		return SkipNegativeDistance
	case s.AvgHeartRate < 0 || s.MaxHeartRate < 0:
		return SkipNegativeHeartRate
	case s.SprintCount < 0:
		return SkipNegativeSprints
	case s.DurationMinutes > MaxSessionMinutes:
		return SkipImplausibleDuration
	case s.DistanceKM > MaxSessionKM:
		return SkipImplausibleDistance
	case s.AvgHeartRate > MaxHeartRate || s.MaxHeartRate > MaxHeartRate:
		return SkipImplausibleHeartRate
	case s.SprintCount > MaxSessionSprints:
		return SkipImplausibleSprints
	case s.AvgHeartRate > 0 && s.MaxHeartRate > 0 && s.MaxHeartRate < s.AvgHeartRate:
		return SkipMaxBelowAvgHR
	}
	return SkipNone
}
