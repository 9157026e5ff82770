package predictor

import (
	"fmt"
	"log/slog"

	"skycast/internal/types"
)

// Registry holds one predictor per variable and implements
// types.ForecastSource for the engine.
type Registry struct {
	predictors map[types.Variable]types.Predictor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{predictors: make(map[types.Variable]types.Predictor)}
}

// Register binds a predictor to a variable, replacing any previous binding.
func (r *Registry) Register(v types.Variable, p types.Predictor) {
	r.predictors[v] = p
}

// Predictor returns the predictor registered for the variable.
func (r *Registry) Predictor(v types.Variable) (types.Predictor, error) {
	p, ok := r.predictors[v]
	if !ok {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePredictionUnavailable,
			fmt.Sprintf("no predictor registered for variable %s", v),
			nil,
			map[string]any{"variable": string(v)},
		)
	}
	return p, nil
}

// LoadRegistry builds a Registry from the snapshot store, one harmonic model
// per variable, all anchored on the given clock.
func LoadRegistry(store *Store, clock types.Clock, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snaps, err := store.LoadAll()
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for v, snap := range snaps {
		model := snap.Model
		reg.Register(v, model.WithClock(clock))
		logger.Info("loaded model snapshot",
			"variable", string(v),
			"snapshot_id", snap.ID,
			"trained_at", model.TrainedAt,
			"sample_count", model.SampleCount,
		)
	}
	return reg, nil
}
