package db

import (
	"context"
	"time"

	"skycast/internal/types"
)

// ObservationRepository provides data access for the observations table,
// which holds the normalized historical weather samples the trainer fits
// models against.
type ObservationRepository struct {
	db DBTX
}

// NewObservationRepository creates a new ObservationRepository backed by the
// given database connection (pool or transaction).
func NewObservationRepository(db DBTX) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// InsertBatch upserts a batch of observations for a single variable. The
// (variable, observed_at) pair is the natural key; re-ingesting the same
// export overwrites values rather than duplicating rows. Returns the number
// of rows written.
func (r *ObservationRepository) InsertBatch(ctx context.Context, variable types.Variable, obs []types.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	written := 0
	for _, o := range obs {
		tag, err := r.db.Exec(ctx,
			`INSERT INTO observations (variable, observed_at, value)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (variable, observed_at)
			 DO UPDATE SET value = EXCLUDED.value`,
			string(variable),
			o.Timestamp.UTC(),
			o.Value,
		)
		if err != nil {
			return written, types.NewAppError(types.ErrCodeInternalDB, "failed to insert observation", err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// LoadSeries returns all observations for a variable ordered by time.
func (r *ObservationRepository) LoadSeries(ctx context.Context, variable types.Variable) ([]types.Observation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT observed_at, value
		 FROM observations
		 WHERE variable = $1
		 ORDER BY observed_at ASC`,
		string(variable),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query observations", err)
	}
	defer rows.Close()

	var obs []types.Observation
	for rows.Next() {
		var ts time.Time
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan observation row", err)
		}
		obs = append(obs, types.Observation{Timestamp: ts.UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate observation rows", err)
	}
	return obs, nil
}

// CountByVariable returns the number of stored observations per variable.
// The trainer uses this to report coverage before fitting.
func (r *ObservationRepository) CountByVariable(ctx context.Context) (map[types.Variable]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT variable, COUNT(*)
		 FROM observations
		 GROUP BY variable`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count observations", err)
	}
	defer rows.Close()

	counts := make(map[types.Variable]int)
	for rows.Next() {
		var variable string
		var count int
		if err := rows.Scan(&variable, &count); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan count row", err)
		}
		counts[types.Variable(variable)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate count rows", err)
	}
	return counts, nil
}
