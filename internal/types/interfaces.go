package types

import (
	"context"
	"time"
)

// Predictor is the per-variable forecasting collaborator. It produces point
// estimates at now, now+interval, ..., now+horizon (inclusive), anchored to
// wall-clock "now" at call time. Implementations are opaque to the engine;
// a failure to produce an estimate surfaces as ErrCodePredictionUnavailable.
type Predictor interface {
	Predict(ctx context.Context, horizonHours, intervalHours int) ([]SeriesPoint, error)
}

// ForecastSource resolves the predictor for a given variable. It is the
// explicit capability injected into the engine at construction time; there is
// no process-wide model registry singleton.
type ForecastSource interface {
	Predictor(v Variable) (Predictor, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
