// Package load derives a training-load score, status and recommendation
// from a player's sessions in a window.
//
// The score is a weighted sum of two signals, each on a 0-100 scale:
//
//	volume    = 100 * total_minutes / (days * baseline_minutes_per_day)
//	intensity = 100 * mean(sprint_norm, hr_norm)
//
// where sprint_norm = clamp01(avg_sprints_per_session / sprint_reference) and
// hr_norm = clamp01((avg_hr - 60) / 140). Without heart-rate data the
// intensity signal is sprint_norm alone. The result is clamped to [0,100].
package load

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// Default weighting constants.
const (
	defaultBaselinePerDay  = 90.0
	defaultVolumeWeight    = 0.8
	defaultIntensityWeight = 0.2
	defaultSprintReference = 30.0

	restingHeartRate = 60.0
	peakHeartRate    = 200.0

	warningThreshold = 85.0
	optimalThreshold = 50.0
	maxScore         = 100.0
)

// Analyzer computes LoadResults. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	baselinePerDay  float64
	volumeWeight    float64
	intensityWeight float64
	sprintReference float64
	log             logger.Logger
}

// NewAnalyzer creates a load analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		baselinePerDay:  defaultBaselinePerDay,
		volumeWeight:    defaultVolumeWeight,
		intensityWeight: defaultIntensityWeight,
		sprintReference: defaultSprintReference,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Named("load")
	}
	return a
}

// Analyze computes the load of player over the sessions that fall in w.
// Malformed sessions are skipped and logged; they never fail the call.
func (a *Analyzer) Analyze(ctx context.Context, player model.PlayerProfile, sessions []model.SessionMetric, w model.Window) types.LoadResult {
	valid, skipped := model.Partition(sessions, w)
	for _, s := range skipped {
		a.log.Error(ctx, "skipping malformed session record",
			logger.Int64("player_id", player.ID),
			logger.String("session_id", s.SessionID),
			logger.String("reason", string(s.Reason)),
		)
		metrics.RecordRecordSkipped(string(s.Reason))
	}

	res := types.LoadResult{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Position:   player.Position,
		PhotoURL:   player.PhotoURL,
	}
	if len(valid) == 0 {
		res.Status = types.StatusLow
		res.Recommendation = types.RecNoData
		return res
	}

	var distance, hrSum float64
	var sprints, hrCount int
	for _, s := range valid {
		res.TotalMinutes += s.DurationMinutes
		distance += s.DistanceKM
		sprints += s.SprintCount
		if s.HasHeartRate() {
			hrSum += s.AvgHeartRate
			hrCount++
		}
	}
	n := float64(len(valid))
	res.SessionCount = len(valid)
	res.AvgDistanceKM = round(distance/n, 2)

	sprintNorm := clamp01(float64(sprints) / n / a.sprintReference)
	intensity := sprintNorm
	if hrCount > 0 {
		avgHR := hrSum / float64(hrCount)
		res.AvgHeartRate = round(avgHR, 1)
		hrNorm := clamp01((avgHR - restingHeartRate) / (peakHeartRate - restingHeartRate))
		intensity = (sprintNorm + hrNorm) / 2
	}
	volume := res.TotalMinutes / (float64(w.Days) * a.baselinePerDay)

	res.LoadScore = Clamp(maxScore * (a.volumeWeight*volume + a.intensityWeight*intensity))
	res.Status, res.Recommendation = Classify(res.LoadScore)
	return res
}

// Classify maps a load score to its status and recommendation.
func Classify(score float64) (types.LoadStatus, string) {
	switch {
	case score > warningThreshold:
		return types.StatusWarning, types.RecReduceIntensity
	case score > optimalThreshold:
		return types.StatusOptimal, types.RecMaintainProgram
	default:
		return types.StatusLow, types.RecIncreaseVolume
	}
}

// Sort orders results by load score descending, then player id ascending.
func Sort(results []types.LoadResult) {
	slices.SortStableFunc(results, func(a, b types.LoadResult) int {
		if c := cmp.Compare(b.LoadScore, a.LoadScore); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
}

// Clamp bounds a score to [0,100].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScore, v))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
