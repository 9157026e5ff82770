// Package main is the entry point for the SkyCast API server.
//
// It loads configuration, builds the forecast source (local model snapshots
// or the remote prediction service), wires the HTTP chassis (middleware,
// routing, health checks), and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"

	"skycast/internal/api/handlers"
	"skycast/internal/config"
	"skycast/internal/core"
	"skycast/internal/engine"
	"skycast/internal/predictor"
	"skycast/internal/telemetry"
	"skycast/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("skycast API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	clock := types.RealClock{}

	// Choose the forecast source: a remote prediction service when
	// PREDICTOR_URL is set, otherwise local model snapshots.
	var source types.ForecastSource
	var probes []core.HealthProbe

	if cfg.Predictor.URL != "" {
		remote := predictor.NewRemoteSource(
			cfg.Predictor.URL,
			&http.Client{Timeout: cfg.Predictor.Timeout},
		)
		source = remote
		probes = append(probes, &remoteProbe{url: cfg.Predictor.URL})
		logger.Info("using remote prediction service", "url", cfg.Predictor.URL)
	} else {
		store, err := predictor.NewStore(cfg.Model.Dir)
		if err != nil {
			return fmt.Errorf("opening model store: %w", err)
		}
		registry, err := predictor.LoadRegistry(store, clock, logger)
		if err != nil {
			return fmt.Errorf("loading model snapshots: %w", err)
		}
		source = registry
		probes = append(probes, &modelProbe{store: store})
		logger.Info("using local model snapshots", "dir", cfg.Model.Dir)
	}

	metrics, err := buildMetrics(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	forecastEngine := engine.NewForecastEngine(source, logger, clock)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.HealthProbes = probes

	weatherHandler := handlers.NewWeatherHandler(forecastEngine, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		weatherHandler.RegisterRoutes(r)
	})

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// buildMetrics returns a CloudWatch-backed collector when metrics are
// enabled, a no-op collector otherwise.
func buildMetrics(cfg *config.Config, logger *slog.Logger) (telemetry.MetricsCollector, error) {
	if !cfg.Observability.EnableMetrics {
		return telemetry.NoopMetrics{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(cfg.Observability.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg)
	return telemetry.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger), nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// modelProbe reports healthy when every model snapshot on disk passes the
// integrity check.
type modelProbe struct {
	store *predictor.Store
}

func (p *modelProbe) Name() string { return "models" }

func (p *modelProbe) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if issues := p.store.Verify(); len(issues) > 0 {
		return fmt.Errorf("%d model snapshot issue(s), first: %s %s",
			len(issues), issues[0].Variable, issues[0].Problem)
	}
	return nil
}

// remoteProbe reports healthy when the prediction service answers its health
// endpoint.
type remoteProbe struct {
	url string
}

func (p *remoteProbe) Name() string { return "predictor" }

func (p *remoteProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prediction service health returned %d", resp.StatusCode)
	}
	return nil
}
