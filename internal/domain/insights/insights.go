// Package insights buckets per-player load and risk results into the
// coach-facing recommendation feed.
package insights

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/pitchload/internal/domain/risk"
	"github.com/okian/pitchload/internal/domain/types"
)

// Entry pairs the two analyses of one player.
type Entry struct {
	Load types.LoadResult
	Risk types.RiskResult
}

// Build assembles the bundle. rosterSize is the number of players that were
// requested; entries may be fewer when players were omitted.
// Recovery and optimization lists are ordered by player id; prevention
// follows the risk triage order.
func Build(entries []Entry, rosterSize, days int) types.InsightsBundle {
	b := types.InsightsBundle{
		RecoveryRecommendations: []types.RecoveryItem{},
		InjuryPrevention:        []types.PreventionItem{},
		WorkloadOptimization:    []types.OptimizationItem{},
		Summary: types.Summary{
			TotalPlayersAnalyzed: rosterSize,
			PlayersOmitted:       max(0, rosterSize-len(entries)),
			PeriodDays:           days,
		},
	}

	byID := slices.Clone(entries)
	slices.SortStableFunc(byID, func(a, b Entry) int { return cmp.Compare(a.Load.PlayerID, b.Load.PlayerID) })

	risks := make([]types.RiskResult, 0, len(entries))
	for _, e := range byID {
		switch e.Load.Status {
		case types.StatusWarning:
			b.Summary.PlayersNeedingRecovery++
			b.RecoveryRecommendations = append(b.RecoveryRecommendations, types.RecoveryItem{
				PlayerID:   e.Load.PlayerID,
				PlayerName: e.Load.PlayerName,
				Reason:     types.ReasonHighLoad,
				Action:     e.Load.Recommendation,
			})
		case types.StatusOptimal:
			b.Summary.PlayersOptimalLoad++
		case types.StatusLow:
			b.WorkloadOptimization = append(b.WorkloadOptimization, types.OptimizationItem{
				PlayerID:       e.Load.PlayerID,
				PlayerName:     e.Load.PlayerName,
				CurrentLoad:    e.Load.LoadScore,
				Recommendation: e.Load.Recommendation,
			})
		}
		if e.Risk.RiskLevel != types.LevelLow {
			risks = append(risks, e.Risk)
		}
	}

	risk.Sort(risks)
	for _, r := range risks {
		b.InjuryPrevention = append(b.InjuryPrevention, types.PreventionItem{
			PlayerID:       r.PlayerID,
			PlayerName:     r.PlayerName,
			RiskLevel:      r.RiskLevel,
			RiskFactors:    r.RiskFactors,
			Recommendation: r.Recommendation,
		})
	}

	if rosterSize > 0 {
		pct := 100 * float64(b.Summary.PlayersNeedingRecovery) / float64(rosterSize)
		b.Summary.RecoveryPercentage = math.Round(pct*10) / 10
	}
	return b
}
