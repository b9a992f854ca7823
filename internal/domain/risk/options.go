package risk

import (
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the factor trigger thresholds. Non-positive
// values keep the defaults.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		if t.SeniorAge > 0 {
			a.thresholds.SeniorAge = t.SeniorAge
		}
		if t.JuniorAge > 0 {
			a.thresholds.JuniorAge = t.JuniorAge
		}
		if t.VolumeMinutesPerDay > 0 {
			a.thresholds.VolumeMinutesPerDay = t.VolumeMinutesPerDay
		}
		if t.AvgHeartRate > 0 {
			a.thresholds.AvgHeartRate = t.AvgHeartRate
		}
		if t.SprintsPerDay > 0 {
			a.thresholds.SprintsPerDay = t.SprintsPerDay
		}
		if t.SessionsPerWeek > 0 {
			a.thresholds.SessionsPerWeek = t.SessionsPerWeek
		}
	}
}

// WithFactorPoints overrides the points of the named factors.
func WithFactorPoints(points map[types.RiskFactor]float64) Option {
	return func(a *Analyzer) {
		for f, p := range points {
			if _, ok := a.points[f]; ok && p >= 0 {
				a.points[f] = p
			}
		}
	}
}

// WithLogger sets the logger used for skipped-record diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}
