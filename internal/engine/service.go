// This file contains the ForecastEngine implementation, which wires the
// pipeline stages together: horizon resolution, parallel per-variable
// prediction, series alignment, assessment, and window filtering.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"skycast/internal/types"
)

// PredictConcurrencyLimit is the maximum number of concurrent per-variable
// prediction calls.
const PredictConcurrencyLimit = 5

// datetimeLayout is the human-readable timestamp format used in responses.
const datetimeLayout = "2006-01-02 15:04:05"

// ForecastRequest carries the validated query parameters for a forecast.
type ForecastRequest struct {
	Latitude   float64
	Longitude  float64
	TargetDate time.Time
	Hour       HourSelector
}

// ForecastItem is a single assessed time step in a forecast response.
type ForecastItem struct {
	Datetime               string                  `json:"datetime"`
	Timestamp              int64                   `json:"timestamp"`
	PredictedWindU         float64                 `json:"predicted_wind_u"`
	PredictedWindV         float64                 `json:"predicted_wind_v"`
	PredictedWindSpeed     float64                 `json:"predicted_wind_speed"`
	PredictedPrecipitation float64                 `json:"predicted_precipitation_mm"`
	PredictedTemperature   float64                 `json:"predicted_temperature_c"`
	PredictedHumidity      float64                 `json:"predicted_humidity"`
	Assessment             types.OverallAssessment `json:"assessment"`
}

// ForecastMeta describes the window that produced the response.
type ForecastMeta struct {
	ForecastCount int    `json:"forecast_count"`
	TargetDate    string `json:"target_date"`
	TargetHour    string `json:"target_hour"`
	Message       string `json:"message,omitempty"`
}

// ForecastResponse is the payload for a point forecast query.
type ForecastResponse struct {
	Location types.Location `json:"location"`
	Forecast []ForecastItem `json:"forecast"`
	Meta     ForecastMeta   `json:"meta"`
}

// SummaryResponse aggregates distributional statistics per derived quantity
// over the requested window.
type SummaryResponse struct {
	Location   types.Location              `json:"location"`
	Statistics map[string]types.Statistics `json:"statistics"`
	Meta       ForecastMeta                `json:"meta"`
}

// ForecastEngine defines the business logic interface for forecast retrieval
// and summary statistics.
type ForecastEngine interface {
	GetForecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error)
	GetSummaryStatistics(ctx context.Context, req ForecastRequest) (*SummaryResponse, error)
}

// forecastEngine is the concrete implementation of ForecastEngine.
type forecastEngine struct {
	source types.ForecastSource
	logger *slog.Logger
	clock  types.Clock
}

// NewForecastEngine creates a new ForecastEngine with the provided dependencies.
func NewForecastEngine(source types.ForecastSource, logger *slog.Logger, clock types.Clock) ForecastEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &forecastEngine{
		source: source,
		logger: logger,
		clock:  clock,
	}
}

// GetForecast runs the full pipeline for a point forecast:
//  1. Resolve the prediction horizon and sampling interval from the target
//     date and hour selector.
//  2. Fetch per-variable series concurrently from the forecast source.
//  3. Align the series on shared timestamps and compute derived metrics.
//  4. Assess each aligned point.
//  5. Filter to the requested window and shape the response.
func (e *forecastEngine) GetForecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	assessed, err := e.assessWindow(ctx, req)
	if err != nil {
		return nil, err
	}

	items := make([]ForecastItem, 0, len(assessed))
	for _, a := range assessed {
		items = append(items, ForecastItem{
			Datetime:               a.Point.Timestamp.Format(datetimeLayout),
			Timestamp:              a.Point.Timestamp.Unix(),
			PredictedWindU:         round2(a.Point.WindU),
			PredictedWindV:         round2(a.Point.WindV),
			PredictedWindSpeed:     round2(a.Point.WindSpeed),
			PredictedPrecipitation: round2(a.Point.Precipitation),
			PredictedTemperature:   round2(a.Point.Temperature),
			PredictedHumidity:      round2(a.Point.Humidity),
			Assessment:             a.Assessment,
		})
	}

	resp := &ForecastResponse{
		Location: locationOf(req),
		Forecast: items,
		Meta:     e.buildMeta(req, len(items)),
	}
	return resp, nil
}

// GetSummaryStatistics runs the same pipeline as GetForecast but reduces the
// window to per-quantity statistics instead of individual time steps.
func (e *forecastEngine) GetSummaryStatistics(ctx context.Context, req ForecastRequest) (*SummaryResponse, error) {
	assessed, err := e.assessWindow(ctx, req)
	if err != nil {
		return nil, err
	}

	windSpeed := make([]float64, 0, len(assessed))
	precipitation := make([]float64, 0, len(assessed))
	temperature := make([]float64, 0, len(assessed))
	humidity := make([]float64, 0, len(assessed))
	for _, a := range assessed {
		windSpeed = append(windSpeed, a.Point.WindSpeed)
		precipitation = append(precipitation, a.Point.Precipitation)
		temperature = append(temperature, a.Point.Temperature)
		humidity = append(humidity, a.Point.Humidity)
	}

	stats := map[string]types.Statistics{}
	if len(assessed) > 0 {
		stats["wind_speed"] = Summarize(windSpeed)
		stats["precipitation"] = Summarize(precipitation)
		stats["temperature"] = Summarize(temperature)
		stats["humidity"] = Summarize(humidity)
	}

	resp := &SummaryResponse{
		Location:   locationOf(req),
		Statistics: stats,
		Meta:       e.buildMeta(req, len(assessed)),
	}
	return resp, nil
}

// assessWindow executes the shared portion of the pipeline: horizon
// resolution, parallel fetch, alignment, assessment, and window filtering.
func (e *forecastEngine) assessWindow(ctx context.Context, req ForecastRequest) ([]AssessedPoint, error) {
	now := e.clock.Now()

	plan, err := ResolveHorizon(now, req.TargetDate, req.Hour)
	if err != nil {
		return nil, err
	}

	series, err := e.fetchSeries(ctx, plan)
	if err != nil {
		return nil, err
	}

	points, err := alignSeries(series)
	if err != nil {
		return nil, err
	}

	assessed := make([]AssessedPoint, 0, len(points))
	for _, p := range points {
		assessed = append(assessed, AssessedPoint{Point: p, Assessment: Assess(p)})
	}

	window := FilterWindow(assessed, req.TargetDate, req.Hour)

	e.logger.DebugContext(ctx, "forecast window assembled",
		"horizon_hours", plan.HorizonHours,
		"interval_hours", plan.IntervalHours,
		"aligned_points", len(points),
		"window_points", len(window),
	)

	return window, nil
}

// locationOf echoes the requested coordinates back as the response location,
// labelled "lat, lon".
func locationOf(req ForecastRequest) types.Location {
	return types.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Name:      fmt.Sprintf("%g, %g", req.Latitude, req.Longitude),
	}
}

// fetchSeries queries every variable's predictor concurrently and collects
// the raw series. Any single predictor failure aborts the whole fetch.
func (e *forecastEngine) fetchSeries(ctx context.Context, plan SamplingPlan) (map[types.Variable][]types.SeriesPoint, error) {
	var mu sync.Mutex
	series := make(map[types.Variable][]types.SeriesPoint, len(types.AllVariables()))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(PredictConcurrencyLimit)

	for _, v := range types.AllVariables() {
		g.Go(func() error {
			predictor, err := e.source.Predictor(v)
			if err != nil {
				return err
			}
			pts, err := predictor.Predict(gCtx, plan.HorizonHours, plan.IntervalHours)
			if err != nil {
				return fmt.Errorf("predict %s: %w", v, err)
			}
			mu.Lock()
			series[v] = pts
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, &types.AppError{
			Code:    types.ErrCodePredictionUnavailable,
			Message: fmt.Sprintf("prediction fetch failed: %v", err),
			Err:     err,
		}
	}

	return series, nil
}

// buildMeta shapes the response metadata, attaching an advisory message when
// the window came back empty.
func (e *forecastEngine) buildMeta(req ForecastRequest, count int) ForecastMeta {
	meta := ForecastMeta{
		ForecastCount: count,
		TargetDate:    req.TargetDate.Format("2006-01-02"),
		TargetHour:    req.Hour.String(),
	}
	if count == 0 {
		meta.Message = "no forecast data available for the requested window"
	}
	return meta
}
