package load

import "github.com/okian/pitchload/pkg/logger"

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithBaselineMinutesPerDay sets the daily minutes that count as a full load.
func WithBaselineMinutesPerDay(minutes float64) Option {
	return func(a *Analyzer) {
		if minutes > 0 {
			a.baselinePerDay = minutes
		}
	}
}

// WithWeights sets the volume and intensity weights of the load score.
func WithWeights(volume, intensity float64) Option {
	return func(a *Analyzer) {
		if volume >= 0 && intensity >= 0 && volume+intensity > 0 {
			a.volumeWeight = volume
			a.intensityWeight = intensity
		}
	}
}

// WithSprintReference sets the sprints per session that saturate the sprint signal.
func WithSprintReference(sprints float64) Option {
	return func(a *Analyzer) {
		if sprints > 0 {
			a.sprintReference = sprints
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
