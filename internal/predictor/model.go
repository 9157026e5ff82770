// Package predictor provides the forecast model implementations backing the
// aggregation engine: a locally trained harmonic regression model, a
// compressed on-disk snapshot store, a registry keyed by variable, and a
// circuit-broken remote predictor client.
package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"skycast/internal/types"
)

// featureCount is the width of the harmonic feature vector: an intercept,
// two diurnal harmonics, and one annual harmonic.
const featureCount = 7

const (
	hoursPerDay  = 24.0
	daysPerYear  = 365.25
	hoursPerYear = hoursPerDay * daysPerYear
)

// HarmonicModel captures periodic structure in a single weather variable as
// a linear combination of daily and yearly sinusoids. It is cheap to
// evaluate and serializes to a handful of coefficients.
type HarmonicModel struct {
	Variable     types.Variable `json:"variable"`
	Coefficients []float64      `json:"coefficients"`
	TrainedAt    time.Time      `json:"trained_at"`
	SampleCount  int            `json:"sample_count"`

	clock types.Clock
}

// featureVector maps a timestamp to the harmonic feature row.
func featureVector(ts time.Time) [featureCount]float64 {
	ts = ts.UTC()
	hourOfDay := float64(ts.Hour()) + float64(ts.Minute())/60.0
	dayOfYear := float64(ts.YearDay()-1) + hourOfDay/hoursPerDay

	diurnal := 2 * math.Pi * hourOfDay / hoursPerDay
	annual := 2 * math.Pi * dayOfYear / daysPerYear

	return [featureCount]float64{
		1,
		math.Sin(diurnal),
		math.Cos(diurnal),
		math.Sin(2 * diurnal),
		math.Cos(2 * diurnal),
		math.Sin(annual),
		math.Cos(annual),
	}
}

// TrainHarmonicModel fits the harmonic coefficients to the given
// observations by ordinary least squares over the normal equations. It
// requires at least as many observations as there are coefficients.
func TrainHarmonicModel(variable types.Variable, obs []types.Observation, trainedAt time.Time) (*HarmonicModel, error) {
	if len(obs) < featureCount {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeInternalModel,
			fmt.Sprintf("not enough observations to fit %s model", variable),
			nil,
			map[string]any{"variable": string(variable), "observations": len(obs), "required": featureCount},
		)
	}

	// Accumulate X'X and X'y directly so memory stays constant in the
	// number of observations.
	var xtx [featureCount][featureCount]float64
	var xty [featureCount]float64
	for _, o := range obs {
		f := featureVector(o.Timestamp)
		for i := 0; i < featureCount; i++ {
			xty[i] += f[i] * o.Value
			for j := 0; j < featureCount; j++ {
				xtx[i][j] += f[i] * f[j]
			}
		}
	}

	coeffs, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to fit %s model: %v", variable, err),
			err,
		)
	}

	return &HarmonicModel{
		Variable:     variable,
		Coefficients: coeffs,
		TrainedAt:    trainedAt.UTC(),
		SampleCount:  len(obs),
	}, nil
}

// solveLinearSystem solves A·x = b by Gaussian elimination with partial
// pivoting. A near-zero pivot means the design matrix is singular, which
// happens when the training data lacks temporal spread.
func solveLinearSystem(a [featureCount][featureCount]float64, b [featureCount]float64) ([]float64, error) {
	const pivotEpsilon = 1e-12

	for col := 0; col < featureCount; col++ {
		pivot := col
		for row := col + 1; row < featureCount; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < pivotEpsilon {
			return nil, fmt.Errorf("singular design matrix at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < featureCount; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < featureCount; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, featureCount)
	for row := featureCount - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < featureCount; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}

// WithClock returns a copy of the model that anchors predictions on the
// given clock instead of the wall clock.
func (m *HarmonicModel) WithClock(clock types.Clock) *HarmonicModel {
	dup := *m
	dup.clock = clock
	return &dup
}

// EvaluateAt returns the model's point estimate for a single timestamp.
func (m *HarmonicModel) EvaluateAt(ts time.Time) float64 {
	f := featureVector(ts)
	var sum float64
	for i, c := range m.Coefficients {
		if i >= featureCount {
			break
		}
		sum += c * f[i]
	}
	return sum
}

// Predict produces the series of point estimates from the current hour
// (inclusive) through horizonHours ahead (inclusive), stepping by
// intervalHours. The anchor is the wall clock truncated to the hour so that
// generated timestamps land exactly on hour boundaries.
func (m *HarmonicModel) Predict(ctx context.Context, horizonHours, intervalHours int) ([]types.SeriesPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if intervalHours <= 0 {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("invalid sampling interval %d", intervalHours),
			nil,
		)
	}
	if len(m.Coefficients) != featureCount {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("%s model has %d coefficients, want %d", m.Variable, len(m.Coefficients), featureCount),
			nil,
		)
	}

	clock := m.clock
	if clock == nil {
		clock = types.RealClock{}
	}
	anchor := clock.Now().UTC().Truncate(time.Hour)

	points := make([]types.SeriesPoint, 0, horizonHours/intervalHours+1)
	for h := 0; h <= horizonHours; h += intervalHours {
		ts := anchor.Add(time.Duration(h) * time.Hour)
		points = append(points, types.SeriesPoint{
			Timestamp: ts,
			Value:     m.EvaluateAt(ts),
		})
	}
	return points, nil
}
