// Package types contains the analytics result types shared across layers.
package types

// LoadStatus classifies a load score.
type LoadStatus string

// Load statuses.
const (
	StatusOptimal LoadStatus = "optimal"
	StatusWarning LoadStatus = "warning"
	StatusLow     LoadStatus = "low"
)

// RiskLevel classifies a risk score.
type RiskLevel string

// Risk levels.
const (
	LevelLow    RiskLevel = "low"
	LevelMedium RiskLevel = "medium"
	LevelHigh   RiskLevel = "high"
)

// Recommendation and reason texts shown to coaches.
const (
	RecReduceIntensity    = "Reduce intensity, schedule recovery"
	RecMaintainProgram    = "Maintain current program"
	RecIncreaseVolume     = "Can increase training volume"
	RecNoData             = "No data"
	RecStandardMonitoring = "Continue standard monitoring"
	ReasonHighLoad        = "High training load"
)

// LoadResult is the derived training-load view of one player.
type LoadResult struct {
	PlayerID       int64      `json:"player_id"`
	PlayerName     string     `json:"player_name"`
	Position       string     `json:"position"`
	PhotoURL       string     `json:"photo_url,omitempty"`
	LoadScore      float64    `json:"load_score"`
	TotalMinutes   float64    `json:"total_minutes"`
	AvgDistanceKM  float64    `json:"avg_distance_km"`
	AvgHeartRate   float64    `json:"avg_heart_rate"`
	SessionCount   int        `json:"session_count"`
	Status         LoadStatus `json:"status"`
	Recommendation string     `json:"recommendation"`
}

// RiskMetrics are the aggregates a risk score was computed from.
type RiskMetrics struct {
	TotalMinutes    float64 `json:"total_minutes"`
	SessionCount    int     `json:"session_count"`
	AvgHeartRate    float64 `json:"avg_heart_rate"`
	AvgMaxHeartRate float64 `json:"avg_max_heart_rate"`
	TotalSprints    int     `json:"total_sprints"`
}

// RiskResult is the derived injury-risk view of one player.
type RiskResult struct {
	PlayerID       int64       `json:"player_id"`
	PlayerName     string      `json:"player_name"`
	Position       string      `json:"position"`
	Age            int         `json:"age,omitempty"`
	PhotoURL       string      `json:"photo_url,omitempty"`
	RiskScore      float64     `json:"risk_score"`
	RiskLevel      RiskLevel   `json:"risk_level"`
	RiskFactors    []string    `json:"risk_factors"`
	Recommendation string      `json:"recommendation"`
	Metrics        RiskMetrics `json:"metrics"`
}

// RecoveryItem is an entry of the recovery bucket.
type RecoveryItem struct {
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Reason     string `json:"reason"`
	Action     string `json:"action"`
}

// PreventionItem is an entry of the injury-prevention bucket.
type PreventionItem struct {
	PlayerID       int64     `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	RiskLevel      RiskLevel `json:"risk_level"`
	RiskFactors    []string  `json:"risk_factors"`
	Recommendation string    `json:"recommendation"`
}

// OptimizationItem is an entry of the workload-optimization bucket.
type OptimizationItem struct {
	PlayerID       int64   `json:"player_id"`
	PlayerName     string  `json:"player_name"`
	CurrentLoad    float64 `json:"current_load"`
	Recommendation string  `json:"recommendation"`
}

// Summary aggregates an insights run.
type Summary struct {
	PlayersOptimalLoad     int     `json:"players_optimal_load"`
	PlayersNeedingRecovery int     `json:"players_needing_recovery"`
	TotalPlayersAnalyzed   int     `json:"total_players_analyzed"`
	PlayersOmitted         int     `json:"players_omitted"`
	RecoveryPercentage     float64 `json:"recovery_percentage"`
	PeriodDays             int     `json:"period_days"`
}

// InsightsBundle is the consolidated recommendation feed.
type InsightsBundle struct {
	RecoveryRecommendations []RecoveryItem     `json:"recovery_recommendations"`
	InjuryPrevention        []PreventionItem   `json:"injury_prevention"`
	WorkloadOptimization    []OptimizationItem `json:"workload_optimization"`
	Summary                 Summary            `json:"summary"`
}

// TrainingLoadReport wraps the training-load query result.
type TrainingLoadReport struct {
	PeriodDays     int          `json:"period_days"`
	TotalPlayers   int          `json:"total_players"`
	PlayersOmitted int          `json:"players_omitted"`
	Players        []LoadResult `json:"players"`
}

// InjuryRiskReport wraps the injury-risk query result.
type InjuryRiskReport struct {
	PeriodDays      int          `json:"period_days"`
	TotalPlayers    int          `json:"total_players"`
	PlayersOmitted  int          `json:"players_omitted"`
	HighRiskCount   int          `json:"high_risk_count"`
	MediumRiskCount int          `json:"medium_risk_count"`
	OverallRisk     RiskLevel    `json:"overall_risk"`
	Players         []RiskResult `json:"players"`
}

// NewInjuryRiskReport counts levels over sorted results and derives the team-level risk:
// high if any player is high, medium if more than two are medium, low otherwise.
func NewInjuryRiskReport(days, omitted int, results []RiskResult) InjuryRiskReport {
	r := InjuryRiskReport{
		PeriodDays:     days,
		TotalPlayers:   len(results),
		PlayersOmitted: omitted,
		OverallRisk:    LevelLow,
		Players:        results,
	}
	if r.Players == nil {
		r.Players = []RiskResult{}
	}
	for _, res := range results {
		switch res.RiskLevel {
		case LevelHigh:
			r.HighRiskCount++
		case LevelMedium:
			r.MediumRiskCount++
		case LevelLow:
		}
	}
	switch {
	case r.HighRiskCount > 0:
		r.OverallRisk = LevelHigh
	case r.MediumRiskCount > 2:
		r.OverallRisk = LevelMedium
	}
	return r
}
