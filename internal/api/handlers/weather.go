// Package handlers contains the HTTP handler implementations for the SkyCast API.
//
// This file implements the weather forecast handler:
//   - Assessed point forecast retrieval (GET /v1/weather)
//   - Window summary statistics (GET /v1/weather/summary)
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"skycast/internal/core"
	"skycast/internal/engine"
	"skycast/internal/types"
)

// ForecastEngineInterface defines the engine contract for the weather
// handler. Matches engine.ForecastEngine but is defined locally to avoid
// tight coupling per the handler injection pattern.
type ForecastEngineInterface interface {
	GetForecast(ctx context.Context, req engine.ForecastRequest) (*engine.ForecastResponse, error)
	GetSummaryStatistics(ctx context.Context, req engine.ForecastRequest) (*engine.SummaryResponse, error)
}

// WeatherHandler maps HTTP requests to ForecastEngine methods.
type WeatherHandler struct {
	engine    ForecastEngineInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewWeatherHandler creates a new WeatherHandler with the provided dependencies.
func NewWeatherHandler(eng ForecastEngineInterface, v *core.Validator, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(logger)
	}
	return &WeatherHandler{
		engine:    eng,
		validator: v,
		logger:    logger,
	}
}

// forecastQuery is the bound form of the weather endpoints' coordinate
// parameters, range-checked via validate tags.
type forecastQuery struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

// RegisterRoutes mounts the weather endpoints onto the mux.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.HandleGetWeather)
	r.Get("/weather/summary", h.HandleGetSummary)
}

// HandleGetWeather handles GET /v1/weather.
//
// Query parameters:
//   - lat  (required): latitude in [-90, 90]
//   - lon  (required): longitude in [-180, 180]
//   - date (required): target date, YYYY-MM-DD
//   - hour (optional): 0..23 or "all" (default)
func (h *WeatherHandler) HandleGetWeather(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseForecastQuery(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.engine.GetForecast(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// HandleGetSummary handles GET /v1/weather/summary. It takes the same query
// parameters as HandleGetWeather and returns distributional statistics over
// the requested window instead of individual time steps.
func (h *WeatherHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseForecastQuery(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.engine.GetSummaryStatistics(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// parseForecastQuery validates the shared query parameters of the weather
// endpoints into an engine.ForecastRequest. Coordinate ranges are checked by
// the struct validator; format and presence failures keep parameter-specific
// error codes.
func (h *WeatherHandler) parseForecastQuery(r *http.Request) (engine.ForecastRequest, error) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	if latStr == "" {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a number in [-90, 90]",
			nil,
		)
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a number in [-180, 180]",
			nil,
		)
	}

	if err := h.validator.ValidateStruct(forecastQuery{Latitude: lat, Longitude: lon}); err != nil {
		return engine.ForecastRequest{}, remapCoordinateError(err)
	}

	dateStr := q.Get("date")
	if dateStr == "" {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"date query parameter is required",
			nil,
		)
	}
	targetDate, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return engine.ForecastRequest{}, types.NewAppError(
			types.ErrCodeValidationInvalidDate,
			"date must be formatted as YYYY-MM-DD",
			nil,
		)
	}

	hour, err := engine.ParseHour(q.Get("hour"))
	if err != nil {
		return engine.ForecastRequest{}, err
	}

	return engine.ForecastRequest{
		Latitude:   lat,
		Longitude:  lon,
		TargetDate: targetDate,
		Hour:       hour,
	}, nil
}

// remapCoordinateError translates struct-validator field failures into the
// parameter-specific error codes of the weather API.
func remapCoordinateError(err error) error {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	if _, ok := appErr.Details["Latitude"]; ok {
		return types.NewAppError(types.ErrCodeValidationInvalidLat, "lat must be a number in [-90, 90]", err)
	}
	if _, ok := appErr.Details["Longitude"]; ok {
		return types.NewAppError(types.ErrCodeValidationInvalidLon, "lon must be a number in [-180, 180]", err)
	}
	return err
}
