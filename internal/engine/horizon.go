// Package engine implements the forecast aggregation and risk assessment core:
// horizon resolution, predictor fan-out, series alignment, derived metrics,
// fuzzy classification, risk synthesis, and window statistics.
package engine

import (
	"fmt"
	"strconv"
	"time"

	"skycast/internal/types"
)

// Sampling intervals by request shape. Full-day requests sample every 3 hours;
// single-hour requests sample hourly so the target hour is always hit.
const (
	intervalFullDay      = 3
	intervalSpecificHour = 1
)

// hourAll is the sentinel selecting every hour of the target date.
const hourAll = -1

// HourSelector is either a specific hour of day (0-23) or the "all" sentinel.
// The zero value is not valid; construct via HourAll, HourAt, or ParseHour.
type HourSelector struct {
	hour int
}

// HourAll selects every hour of the target date.
func HourAll() HourSelector { return HourSelector{hour: hourAll} }

// HourAt selects a specific hour of day. The caller must pass 0-23.
func HourAt(h int) HourSelector { return HourSelector{hour: h} }

// ParseHour parses an hour query value: "all" (or empty, the default) selects
// the whole day; otherwise the value must be an integer in 0-23.
func ParseHour(s string) (HourSelector, error) {
	if s == "" || s == "all" {
		return HourAll(), nil
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return HourSelector{}, types.NewAppError(
			types.ErrCodeValidationInvalidHour,
			fmt.Sprintf("hour must be an integer in 0-23 or %q", "all"),
			err,
		)
	}
	if h < 0 || h > 23 {
		return HourSelector{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidHour,
			"hour out of range",
			nil,
			map[string]any{"hour": h},
		)
	}
	return HourAt(h), nil
}

// All reports whether the selector covers the whole day.
func (h HourSelector) All() bool { return h.hour == hourAll }

// Hour returns the selected hour of day. Only meaningful when !All().
func (h HourSelector) Hour() int { return h.hour }

// String renders the selector the way it appears in request/response metadata.
func (h HourSelector) String() string {
	if h.All() {
		return "all"
	}
	return strconv.Itoa(h.hour)
}

// SamplingPlan is the resolved forecast horizon and sampling interval handed
// to each predictor.
type SamplingPlan struct {
	HorizonHours  int
	IntervalHours int
}

// ResolveHorizon maps (now, target date, hour selector) to a sampling plan.
//
// For a full-day request the horizon reaches from now to the start of the
// target date plus 24 hours at a 3-hour interval; for a specific hour it
// reaches exactly the target instant at a 1-hour interval. now is truncated
// to the hour first so every sampled timestamp lands on a whole hour.
//
// A target strictly in the past (negative horizon) is rejected with a
// validation error; a horizon of exactly 0 ("now") is valid.
func ResolveHorizon(now time.Time, targetDate time.Time, hour HourSelector) (SamplingPlan, error) {
	base := now.UTC().Truncate(time.Hour)
	dayStart := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, time.UTC)

	if hour.All() {
		horizon := int(dayStart.Sub(base).Hours()) + 24
		if horizon < 0 {
			return SamplingPlan{}, pastTargetError(targetDate, hour)
		}
		return SamplingPlan{HorizonHours: horizon, IntervalHours: intervalFullDay}, nil
	}

	target := dayStart.Add(time.Duration(hour.Hour()) * time.Hour)
	horizon := int(target.Sub(base).Hours())
	if horizon < 0 {
		return SamplingPlan{}, pastTargetError(targetDate, hour)
	}
	return SamplingPlan{HorizonHours: horizon, IntervalHours: intervalSpecificHour}, nil
}

func pastTargetError(targetDate time.Time, hour HourSelector) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationPastTarget,
		"requested date and hour are in the past",
		nil,
		map[string]any{
			"target_date": targetDate.Format("2006-01-02"),
			"target_hour": hour.String(),
		},
	)
}
