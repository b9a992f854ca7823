package types

// RiskFactor identifies one additive injury-risk factor.
type RiskFactor string

// Risk factors in evaluation order.
const (
	FactorAgeSenior RiskFactor = "age_senior"
	FactorAgeJunior RiskFactor = "age_junior"
	FactorVolume    RiskFactor = "volume"
	FactorIntensity RiskFactor = "intensity"
	FactorFrequency RiskFactor = "frequency"
)

// FactorOrder is the order the risk analyzer evaluates and records factors
// in. Among factors with equal points the earliest one drives the
// recommendation.
var FactorOrder = []RiskFactor{ //nolint:gochecknoglobals // fixed lookup table
	FactorAgeSenior,
	FactorAgeJunior,
	FactorVolume,
	FactorIntensity,
	FactorFrequency,
}

type factorText struct {
	description    string
	recommendation string
}

var factorTable = map[RiskFactor]factorText{ //nolint:gochecknoglobals // fixed lookup table
	FactorAgeSenior: {"Advanced age increases recovery time", "Extend recovery time and add mobility work"},
	FactorAgeJunior: {"Young player, workload monitoring advised", "Progress workload gradually and monitor closely"},
	FactorVolume:    {"High training volume", "Reduce training volume and schedule a rest day"},
	FactorIntensity: {"High-intensity exposure", "Limit high-intensity work and add active recovery"},
	FactorFrequency: {"Insufficient recovery between sessions", "Insert additional rest days between sessions"},
}

// Known reports whether f names one of the defined factors.
func (f RiskFactor) Known() bool {
	_, ok := factorTable[f]
	return ok
}

// Description is the human-readable factor string recorded on a RiskResult.
func (f RiskFactor) Description() string { return factorTable[f].description }

// Recommendation is the action advised when f is the dominant factor.
func (f RiskFactor) Recommendation() string { return factorTable[f].recommendation }

// DefaultFactorPoints are the points each factor adds when present.
func DefaultFactorPoints() map[RiskFactor]float64 {
	return map[RiskFactor]float64{
		FactorAgeSenior: 15,
		FactorAgeJunior: 10,
		FactorVolume:    30,
		FactorIntensity: 25,
		FactorFrequency: 20,
	}
}
