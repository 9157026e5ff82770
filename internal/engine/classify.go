package engine

import (
	"math"

	"skycast/internal/types"
)

// band is one threshold band of a fuzzy classification table: values strictly
// below Upper (and at or above the previous band's Upper) map to this
// category, severity, and safety flag. The final band of every table has
// Upper = +Inf so the tables cover the full real line.
type band struct {
	Upper    float64
	Category string
	Severity float64
	Safe     bool
}

// Canonical threshold tables. Units: wind speed m/s, precipitation mm per
// sampling interval, humidity %, temperature degrees Celsius. Bands are
// ordered low to high and mutually exclusive by construction.
var (
	windBands = []band{
		{3, "Calm", 0.2, true},
		{8, "Breezy", 0.4, true},
		{15, "Windy", 0.6, true},
		{math.Inf(1), "Very Windy", 0.9, false},
	}

	precipitationBands = []band{
		{1, "Dry", 0.1, true},
		{5, "Light Rain", 0.3, true},
		{15, "Moderate Rain", 0.6, true},
		{math.Inf(1), "Heavy Rain", 0.9, false},
	}

	humidityBands = []band{
		{30, "Very Dry", 0.5, false},
		{60, "Comfortable", 0.2, true},
		{80, "Humid", 0.5, true},
		{math.Inf(1), "Very Humid", 0.8, false},
	}

	temperatureBands = []band{
		{10, "Cold", 0.6, true},
		{18, "Cool", 0.3, true},
		{28, "Comfortable", 0.1, true},
		{35, "Warm", 0.4, true},
		{math.Inf(1), "Hot", 0.8, false},
	}
)

// classify maps a value onto the first band whose upper bound exceeds it.
// Evaluation is low-to-high; the unbounded top band guarantees a match for
// every real input, so exactly one category is produced.
func classify(bands []band, value float64) types.VariableAssessment {
	for _, b := range bands {
		if value < b.Upper {
			return types.VariableAssessment{
				Category: b.Category,
				Severity: b.Severity,
				Safe:     b.Safe,
			}
		}
	}
	// Unreachable: the last band is unbounded above.
	last := bands[len(bands)-1]
	return types.VariableAssessment{Category: last.Category, Severity: last.Severity, Safe: last.Safe}
}

// ClassifyWindSpeed classifies a wind speed in m/s.
func ClassifyWindSpeed(v float64) types.VariableAssessment {
	return classify(windBands, v)
}

// ClassifyPrecipitation classifies precipitation in mm per sampling interval.
func ClassifyPrecipitation(v float64) types.VariableAssessment {
	return classify(precipitationBands, v)
}

// ClassifyHumidity classifies relative humidity in percent.
func ClassifyHumidity(v float64) types.VariableAssessment {
	return classify(humidityBands, v)
}

// ClassifyTemperature classifies a temperature in degrees Celsius.
func ClassifyTemperature(v float64) types.VariableAssessment {
	return classify(temperatureBands, v)
}
