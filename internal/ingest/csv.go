// Package ingest parses historical weather exports and normalizes their
// units so the trainer always sees degrees Celsius, percent humidity, and
// millimeters per hour regardless of how the source dataset encoded them.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"skycast/internal/types"
)

// Sensor exports commonly arrive in SI units. The unit is detected from the
// value range rather than declared, so the normalizers key off thresholds no
// plausible sample in the target unit would reach.
const (
	kelvinThreshold     = 150.0  // °C readings never exceed this; K readings always do
	fractionalHumidity  = 1.0    // humidity as a 0..1 fraction instead of percent
	fluxPrecipThreshold = 0.1    // kg/m²/s flux values sit far below mm/h values
	kelvinOffset        = 273.15 // K to °C
	secondsPerHour      = 3600.0 // kg/m²/s to mm/h
)

// ParseSeries reads a CSV export for one variable and returns its
// observations, deduplicated and normalized, in chronological order.
//
// Two layouts are accepted, detected from the header row:
//
//	day,hour,value       (day is 2006-01-02, hour is 0..23)
//	timestamp,value      (RFC 3339 or unix seconds)
//
// Duplicate timestamps keep the last value seen, matching how re-exported
// datasets override earlier rows.
func ParseSeries(r io.Reader, variable types.Variable) ([]types.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("failed to read csv header for %s", variable),
			err,
		)
	}

	layout, err := detectLayout(header)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("unrecognized csv header for %s", variable),
			err,
			map[string]any{"header": header},
		)
	}

	byTime := make(map[time.Time]float64)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalUnexpected,
				fmt.Sprintf("failed to read csv record at line %d", line),
				err,
			)
		}

		ts, value, err := layout.parse(record)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalUnexpected,
				fmt.Sprintf("invalid csv record at line %d", line),
				err,
			)
		}
		byTime[ts] = value
	}

	obs := make([]types.Observation, 0, len(byTime))
	for ts, v := range byTime {
		obs = append(obs, types.Observation{Timestamp: ts, Value: v})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp.Before(obs[j].Timestamp) })

	return Normalize(variable, obs), nil
}

// rowLayout parses one CSV record into a timestamp and value.
type rowLayout struct {
	parse func(record []string) (time.Time, float64, error)
}

func detectLayout(header []string) (rowLayout, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}

	switch {
	case len(cols) >= 3 && cols[0] == "day" && cols[1] == "hour" && cols[2] == "value":
		return rowLayout{parse: parseDayHourRow}, nil
	case len(cols) >= 2 && cols[0] == "timestamp" && cols[1] == "value":
		return rowLayout{parse: parseTimestampRow}, nil
	default:
		return rowLayout{}, fmt.Errorf("expected day,hour,value or timestamp,value columns")
	}
}

func parseDayHourRow(record []string) (time.Time, float64, error) {
	if len(record) < 3 {
		return time.Time{}, 0, fmt.Errorf("expected 3 fields, got %d", len(record))
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(record[0]), time.UTC)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad day %q: %w", record[0], err)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, 0, fmt.Errorf("bad hour %q", record[1])
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad value %q: %w", record[2], err)
	}
	return day.Add(time.Duration(hour) * time.Hour), value, nil
}

func parseTimestampRow(record []string) (time.Time, float64, error) {
	if len(record) < 2 {
		return time.Time{}, 0, fmt.Errorf("expected 2 fields, got %d", len(record))
	}
	raw := strings.TrimSpace(record[0])

	var ts time.Time
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ts = time.Unix(unix, 0).UTC()
	} else {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("bad timestamp %q: %w", raw, err)
		}
		ts = parsed.UTC()
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad value %q: %w", record[1], err)
	}
	return ts, value, nil
}

// Normalize converts a variable's observations into the engine's canonical
// units, inferring the source unit from the value range:
//
//   - temperature: a max above 150 means Kelvin; subtract 273.15
//   - humidity: a max at or below 1 means a fraction; scale to percent
//   - precipitation: a max below 0.1 means a kg/m²/s flux; scale to mm/h
//
// Wind components are already m/s in every known export and pass through.
func Normalize(variable types.Variable, obs []types.Observation) []types.Observation {
	if len(obs) == 0 {
		return obs
	}

	maxValue := obs[0].Value
	for _, o := range obs[1:] {
		if o.Value > maxValue {
			maxValue = o.Value
		}
	}

	var transform func(float64) float64
	switch variable {
	case types.VarTemperature:
		if maxValue > kelvinThreshold {
			transform = func(v float64) float64 { return v - kelvinOffset }
		}
	case types.VarHumidity:
		if maxValue <= fractionalHumidity {
			transform = func(v float64) float64 { return v * 100 }
		}
	case types.VarPrecipitation:
		if maxValue < fluxPrecipThreshold {
			transform = func(v float64) float64 { return v * secondsPerHour }
		}
	}

	if transform == nil {
		return obs
	}

	out := make([]types.Observation, len(obs))
	for i, o := range obs {
		out[i] = types.Observation{Timestamp: o.Timestamp, Value: transform(o.Value)}
	}
	return out
}
