package engine

import (
	"fmt"
	"math"
	"time"

	"skycast/internal/types"
)

// alignSeries intersects the five per-variable series on exact timestamp
// equality and derives the composite metrics for every surviving point.
//
// All five requests use the same horizon and interval against predictors
// anchored to the same truncated "now", so the timestamp sets are expected to
// be identical. A series that disagrees in length or timestamp coverage is
// treated as an upstream fault and fails the whole request rather than being
// silently truncated.
func alignSeries(series map[types.Variable][]types.SeriesPoint) ([]types.ForecastPoint, error) {
	base := series[types.VarWindU]

	indexes := make(map[types.Variable]map[time.Time]float64, len(series))
	for v, pts := range series {
		idx := make(map[time.Time]float64, len(pts))
		for _, p := range pts {
			idx[p.Timestamp] = p.Value
		}
		if len(idx) != len(base) {
			return nil, misalignedError(v, len(base), len(idx))
		}
		indexes[v] = idx
	}

	points := make([]types.ForecastPoint, 0, len(base))
	for _, p := range base {
		ts := p.Timestamp
		vals := make(map[types.Variable]float64, len(indexes))
		for v, idx := range indexes {
			val, ok := idx[ts]
			if !ok {
				return nil, misalignedError(v, len(base), len(idx))
			}
			vals[v] = val
		}
		points = append(points, derivePoint(ts, vals))
	}

	return points, nil
}

// derivePoint builds an aligned point from the raw per-variable values:
// wind speed is the Euclidean norm of the wind components, precipitation is
// clamped to non-negative, and humidity to [0, 100]. The clamps correct for
// the unconstrained regressors upstream, which may emit physically impossible
// values.
func derivePoint(ts time.Time, vals map[types.Variable]float64) types.ForecastPoint {
	u := vals[types.VarWindU]
	v := vals[types.VarWindV]
	return types.ForecastPoint{
		Timestamp:     ts,
		WindU:         u,
		WindV:         v,
		WindSpeed:     math.Sqrt(u*u + v*v),
		Precipitation: math.Max(0, vals[types.VarPrecipitation]),
		Temperature:   vals[types.VarTemperature],
		Humidity:      math.Min(100, math.Max(0, vals[types.VarHumidity])),
	}
}

func misalignedError(v types.Variable, want, got int) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodePredictionUnavailable,
		fmt.Sprintf("predictor series for %s is misaligned with the other variables", v),
		nil,
		map[string]any{"variable": string(v), "expected_points": want, "actual_points": got},
	)
}
