// Package main implements the trainer CLI, which fits one harmonic model per
// forecast variable and publishes the results as compressed snapshots for the
// API server to serve.
//
// Observations come from CSV exports (one file per variable, named
// <variable>.csv) or from the Postgres observation store. When both a data
// directory and DATABASE_URL are available, parsed CSV observations are also
// upserted into Postgres so later retrainings can run straight off the
// database.
//
// Usage:
//
//	go run ./cmd/trainer --data=./data --models=./models
//	go run ./cmd/trainer --from-db --models=./models
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"skycast/internal/db"
	"skycast/internal/ingest"
	"skycast/internal/predictor"
	"skycast/internal/types"
)

func main() {
	dataDir := flag.String("data", "", "Directory of per-variable CSV exports (<variable>.csv)")
	modelDir := flag.String("models", "./models", "Output directory for model snapshots")
	fromDB := flag.Bool("from-db", false, "Train from the Postgres observation store instead of CSV files")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(*dataDir, *modelDir, *fromDB, logger); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(dataDir, modelDir string, fromDB bool, logger *slog.Logger) error {
	time.Local = time.UTC
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !fromDB && dataDir == "" {
		return fmt.Errorf("either --data or --from-db is required")
	}

	var repo *db.ObservationRepository
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connecting to observation store: %w", err)
		}
		defer pool.Close()
		repo = db.NewObservationRepository(pool)
	} else if fromDB {
		return fmt.Errorf("--from-db requires DATABASE_URL")
	}

	store, err := predictor.NewStore(modelDir)
	if err != nil {
		return fmt.Errorf("opening model store: %w", err)
	}

	trainedAt := time.Now().UTC()

	for _, variable := range types.AllVariables() {
		obs, err := loadObservations(ctx, variable, dataDir, fromDB, repo, logger)
		if err != nil {
			return fmt.Errorf("loading %s observations: %w", variable, err)
		}

		model, err := predictor.TrainHarmonicModel(variable, obs, trainedAt)
		if err != nil {
			return fmt.Errorf("training %s model: %w", variable, err)
		}

		snap, err := store.Save(model, trainedAt)
		if err != nil {
			return fmt.Errorf("saving %s snapshot: %w", variable, err)
		}

		logger.Info("trained model",
			"variable", string(variable),
			"observations", len(obs),
			"snapshot_id", snap.ID,
		)
	}

	logger.Info("training complete", "model_dir", modelDir)
	return nil
}

// loadObservations resolves a variable's training series from the configured
// source. CSV-sourced observations are mirrored into Postgres when a
// repository is available.
func loadObservations(
	ctx context.Context,
	variable types.Variable,
	dataDir string,
	fromDB bool,
	repo *db.ObservationRepository,
	logger *slog.Logger,
) ([]types.Observation, error) {
	if fromDB {
		return repo.LoadSeries(ctx, variable)
	}

	path := filepath.Join(dataDir, string(variable)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	obs, err := ingest.ParseSeries(f, variable)
	if err != nil {
		return nil, err
	}

	if repo != nil {
		written, err := repo.InsertBatch(ctx, variable, obs)
		if err != nil {
			return nil, fmt.Errorf("storing observations: %w", err)
		}
		logger.Info("stored observations", "variable", string(variable), "rows", written)
	}

	return obs, nil
}
