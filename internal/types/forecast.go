package types

import "time"

// Variable identifies one of the independently forecast physical quantities.
type Variable string

const (
	VarWindU         Variable = "wind_u"
	VarWindV         Variable = "wind_v"
	VarPrecipitation Variable = "precipitation"
	VarTemperature   Variable = "temperature"
	VarHumidity      Variable = "humidity"
)

// AllVariables returns the five forecast variables in canonical order.
func AllVariables() []Variable {
	return []Variable{VarWindU, VarWindV, VarPrecipitation, VarTemperature, VarHumidity}
}

// IsValid reports whether v is one of the known forecast variables.
func (v Variable) IsValid() bool {
	switch v {
	case VarWindU, VarWindV, VarPrecipitation, VarTemperature, VarHumidity:
		return true
	}
	return false
}

// SeriesPoint is a single (timestamp, predicted value) pair produced by a
// predictor for one variable. Timestamps are always UTC.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Observation is a single historical measurement used for model training.
type Observation struct {
	Timestamp time.Time
	Value     float64
}

// ForecastPoint is one timestamp for which all five variables have a value,
// enriched with the derived wind speed. Precipitation is clamped to >= 0 and
// humidity to [0, 100]; temperature and the wind components are unclamped.
type ForecastPoint struct {
	Timestamp     time.Time
	WindU         float64
	WindV         float64
	WindSpeed     float64
	Precipitation float64
	Temperature   float64
	Humidity      float64
}

// VariableAssessment is the fuzzy classification of a single quantity:
// an ordered category, a severity weight in [0, 1], and a binary safety flag.
type VariableAssessment struct {
	Category string  `json:"category"`
	Severity float64 `json:"severity"`
	Safe     bool    `json:"safe"`
}

// OverallAssessment aggregates the four per-variable assessments into an
// overall risk score, safety verdict, and recommendation.
type OverallAssessment struct {
	Wind            VariableAssessment `json:"wind"`
	Precipitation   VariableAssessment `json:"precipitation"`
	Temperature     VariableAssessment `json:"temperature"`
	Humidity        VariableAssessment `json:"humidity"`
	OverallRisk     float64            `json:"overall_risk"`
	SafeForOutdoors bool               `json:"safe_for_outdoors"`
	Recommendation  string             `json:"recommendation"`
}

// Statistics holds the distributional summary of one variable over a
// forecast window. Percentiles use nearest-rank indexing into the sorted
// sample; Std is the sample standard deviation (0 if fewer than 2 samples).
type Statistics struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	P25  float64 `json:"p25"`
	P75  float64 `json:"p75"`
	P90  float64 `json:"p90"`
}

// Location echoes the caller-requested coordinates in API responses.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}
