// Package risk derives an additive injury-risk score from a player's age
// and recent workload.
package risk

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

// Level thresholds.
const (
	highThreshold   = 70.0
	mediumThreshold = 40.0
	maxScore        = 100.0
)

// Thresholds configures when each factor triggers. Rates are per day or per
// week so they scale with the window length.
type Thresholds struct {
	SeniorAge           int     // age above which age_senior applies
	JuniorAge           int     // age below which age_junior applies
	VolumeMinutesPerDay float64 // minutes per window day above which volume applies
	AvgHeartRate        float64 // average heart rate above which intensity applies
	SprintsPerDay       float64 // sprints per window day above which intensity applies
	SessionsPerWeek     float64 // sessions per 7 window days above which frequency applies
}

// DefaultThresholds returns the stock factor thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SeniorAge:           30,
		JuniorAge:           18,
		VolumeMinutesPerDay: 100,
		AvgHeartRate:        165,
		SprintsPerDay:       15,
		SessionsPerWeek:     6,
	}
}

// Analyzer computes RiskResults. It is safe for concurrent use.
type Analyzer struct {
	thresholds Thresholds
	points     map[types.RiskFactor]float64
	log        logger.Logger
}

// NewAnalyzer creates a risk analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: DefaultThresholds(),
		points:     types.DefaultFactorPoints(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Named("risk")
	}
	return a
}

// Analyze scores player over the sessions that fall in w. Factors are
// recorded in evaluation order.
func (a *Analyzer) Analyze(ctx context.Context, player model.PlayerProfile, sessions []model.SessionMetric, w model.Window) types.RiskResult {
	valid, skipped := model.Partition(sessions, w)
	for _, s := range skipped {
		a.log.Error(ctx, "skipping malformed session record",
			logger.Int64("player_id", player.ID),
			logger.String("session_id", s.SessionID),
			logger.String("reason", string(s.Reason)),
		)
		metrics.RecordRecordSkipped(string(s.Reason))
	}

	m := aggregate(valid)
	present := a.factors(player, m, w)
	m.AvgHeartRate = round1(m.AvgHeartRate)
	m.AvgMaxHeartRate = round1(m.AvgMaxHeartRate)

	res := types.RiskResult{
		PlayerID:    player.ID,
		PlayerName:  player.Name,
		Position:    player.Position,
		Age:         player.Age,
		PhotoURL:    player.PhotoURL,
		RiskFactors: make([]string, 0, len(present)),
		Metrics:     m,
	}

	var score float64
	var dominant types.RiskFactor
	best := -1.0
	for _, f := range present {
		p := a.points[f]
		score += p
		res.RiskFactors = append(res.RiskFactors, f.Description())
		if p > best {
			best, dominant = p, f
		}
	}

	res.RiskScore = math.Max(0, math.Min(maxScore, score))
	res.RiskLevel = Level(res.RiskScore)
	res.Recommendation = types.RecStandardMonitoring
	if res.RiskLevel != types.LevelLow {
		res.Recommendation = dominant.Recommendation()
	}
	return res
}

// factors returns the factors that apply, in types.FactorOrder.
func (a *Analyzer) factors(player model.PlayerProfile, m types.RiskMetrics, w model.Window) []types.RiskFactor {
	var out []types.RiskFactor
	for _, f := range types.FactorOrder {
		if a.applies(f, player, m, float64(w.Days)) {
			out = append(out, f)
		}
	}
	return out
}

func (a *Analyzer) applies(f types.RiskFactor, player model.PlayerProfile, m types.RiskMetrics, days float64) bool {
	t := a.thresholds
	switch f {
	case types.FactorAgeSenior:
		return player.Age > t.SeniorAge
	case types.FactorAgeJunior:
		return player.Age > 0 && player.Age < t.JuniorAge && player.Age <= t.SeniorAge
	case types.FactorVolume:
		return m.TotalMinutes > t.VolumeMinutesPerDay*days
	case types.FactorIntensity:
		return (m.AvgHeartRate > 0 && m.AvgHeartRate > t.AvgHeartRate) || float64(m.TotalSprints) > t.SprintsPerDay*days
	case types.FactorFrequency:
		return float64(m.SessionCount) > t.SessionsPerWeek*days/7
	default:
		return false
	}
}

func aggregate(sessions []model.SessionMetric) types.RiskMetrics {
	var m types.RiskMetrics
	var hrSum, maxSum float64
	var hrN, maxN int
	for _, s := range sessions {
		m.TotalMinutes += s.DurationMinutes
		m.TotalSprints += s.SprintCount
		if s.HasHeartRate() {
			hrSum += s.AvgHeartRate
			hrN++
		}
		if s.MaxHeartRate > 0 {
			maxSum += s.MaxHeartRate
			maxN++
		}
	}
	m.SessionCount = len(sessions)
	if hrN > 0 {
		m.AvgHeartRate = hrSum / float64(hrN)
	}
	if maxN > 0 {
		m.AvgMaxHeartRate = maxSum / float64(maxN)
	}
	return m
}

// Level maps a risk score to its level.
func Level(score float64) types.RiskLevel {
	switch {
	case score >= highThreshold:
		return types.LevelHigh
	case score >= mediumThreshold:
		return types.LevelMedium
	default:
		return types.LevelLow
	}
}

// Sort orders results for triage: risk score descending, then player id
// ascending. The sort is stable.
func Sort(results []types.RiskResult) {
	slices.SortStableFunc(results, func(a, b types.RiskResult) int {
		if c := cmp.Compare(b.RiskScore, a.RiskScore); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
