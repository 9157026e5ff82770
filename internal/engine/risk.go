package engine

import (
	"math"

	"skycast/internal/types"
)

// Recommendation strings surfaced to callers. Fixed thresholds, no hysteresis:
// each point is assessed independently of its neighbours.
const (
	RecommendationUnsafe  = "Not recommended for outdoor activities"
	RecommendationCaution = "Use caution for outdoor activities"
	RecommendationGood    = "Good conditions for outdoor activities"
)

// cautionRiskThreshold is the overall risk above which safe conditions still
// warrant caution.
const cautionRiskThreshold = 0.5

// Assess classifies the four physical quantities of a point and synthesizes
// the overall assessment: overall_risk is the mean of the four severities
// rounded to 2 decimals, safe_for_outdoors is the conjunction of the four
// safety flags, and the recommendation follows from those two.
func Assess(p types.ForecastPoint) types.OverallAssessment {
	wind := ClassifyWindSpeed(p.WindSpeed)
	precip := ClassifyPrecipitation(p.Precipitation)
	temp := ClassifyTemperature(p.Temperature)
	humid := ClassifyHumidity(p.Humidity)

	risk := round2((wind.Severity + precip.Severity + temp.Severity + humid.Severity) / 4)
	safe := wind.Safe && precip.Safe && temp.Safe && humid.Safe

	return types.OverallAssessment{
		Wind:            wind,
		Precipitation:   precip,
		Temperature:     temp,
		Humidity:        humid,
		OverallRisk:     risk,
		SafeForOutdoors: safe,
		Recommendation:  recommend(safe, risk),
	}
}

func recommend(safe bool, risk float64) string {
	switch {
	case !safe:
		return RecommendationUnsafe
	case risk > cautionRiskThreshold:
		return RecommendationCaution
	default:
		return RecommendationGood
	}
}

// round2 rounds to 2 decimal places, the precision used for all serialized
// numeric fields.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
