package seeder

import (
	"fmt"

	"github.com/okian/pitchload/internal/domain/risk"
	"github.com/okian/pitchload/internal/domain/types"
)

// Verify checks the analytics of a seeded team for internal consistency and
// returns one message per violation.
func Verify(r Reports, wantPlayers int) []string {
	var out []string
	add := func(format string, args ...any) { out = append(out, fmt.Sprintf(format, args...)) }

	load := r.Load
	if load.TotalPlayers != wantPlayers {
		add("training-load: total_players %d, want %d", load.TotalPlayers, wantPlayers)
	}
	if len(load.Players)+load.PlayersOmitted != load.TotalPlayers {
		add("training-load: %d players + %d omitted != %d", len(load.Players), load.PlayersOmitted, load.TotalPlayers)
	}
	for i, p := range load.Players {
		if p.LoadScore < 0 || p.LoadScore > 100 {
			add("training-load: player %d score %.2f out of range", p.PlayerID, p.LoadScore)
		}
		if i > 0 {
			prev := load.Players[i-1]
			if prev.LoadScore < p.LoadScore || (prev.LoadScore == p.LoadScore && prev.PlayerID > p.PlayerID) {
				add("training-load: player %d ordered before %d", prev.PlayerID, p.PlayerID)
			}
		}
	}

	rr := r.Risk
	var high, medium int
	for i, p := range rr.Players {
		if p.RiskScore < 0 || p.RiskScore > 100 {
			add("injury-risk: player %d score %.2f out of range", p.PlayerID, p.RiskScore)
		}
		if want := risk.Level(p.RiskScore); p.RiskLevel != want {
			add("injury-risk: player %d level %s, want %s", p.PlayerID, p.RiskLevel, want)
		}
		if p.RiskLevel != types.LevelLow && len(p.RiskFactors) == 0 {
			add("injury-risk: player %d is %s without factors", p.PlayerID, p.RiskLevel)
		}
		switch p.RiskLevel {
		case types.LevelHigh:
			high++
		case types.LevelMedium:
			medium++
		}
		if i > 0 {
			prev := rr.Players[i-1]
			if prev.RiskScore < p.RiskScore || (prev.RiskScore == p.RiskScore && prev.PlayerID > p.PlayerID) {
				add("injury-risk: player %d ordered before %d", prev.PlayerID, p.PlayerID)
			}
		}
	}
	if high != rr.HighRiskCount || medium != rr.MediumRiskCount {
		add("injury-risk: counts high=%d medium=%d, reported %d/%d", high, medium, rr.HighRiskCount, rr.MediumRiskCount)
	}
	if want := overallFor(high, medium); rr.OverallRisk != want {
		add("injury-risk: overall %s, want %s", rr.OverallRisk, want)
	}

	sum := r.Insights.Summary
	if sum.TotalPlayersAnalyzed != wantPlayers {
		add("insights: total_players_analyzed %d, want %d", sum.TotalPlayersAnalyzed, wantPlayers)
	}
	if len(r.Insights.RecoveryRecommendations) != sum.PlayersNeedingRecovery {
		add("insights: %d recovery items, summary says %d", len(r.Insights.RecoveryRecommendations), sum.PlayersNeedingRecovery)
	}
	if n := sum.PlayersOptimalLoad + sum.PlayersNeedingRecovery + len(r.Insights.WorkloadOptimization); n > sum.TotalPlayersAnalyzed {
		add("insights: %d bucketed players exceed %d analyzed", n, sum.TotalPlayersAnalyzed)
	}
	for _, p := range r.Insights.InjuryPrevention {
		if p.RiskLevel == types.LevelLow {
			add("insights: low-risk player %d in injury prevention", p.PlayerID)
		}
	}
	return out
}

func overallFor(high, medium int) types.RiskLevel {
	switch {
	case high > 0:
		return types.LevelHigh
	case medium > 2:
		return types.LevelMedium
	default:
		return types.LevelLow
	}
}
