package ingest

import (
	"strings"
	"testing"
	"time"

	"skycast/internal/types"
)

func TestParseSeries_DayHourLayout(t *testing.T) {
	input := strings.Join([]string{
		"day,hour,value",
		"2026-01-02,0,3.5",
		"2026-01-01,23,2.0",
		"2026-01-02,1,4.0",
	}, "\n")

	obs, err := ParseSeries(strings.NewReader(input), types.VarWindU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	// Chronological order regardless of input order.
	wantFirst := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	if !obs[0].Timestamp.Equal(wantFirst) {
		t.Errorf("first timestamp = %v, want %v", obs[0].Timestamp, wantFirst)
	}
	if obs[0].Value != 2.0 {
		t.Errorf("first value = %v, want 2.0", obs[0].Value)
	}
	if obs[2].Value != 4.0 {
		t.Errorf("last value = %v, want 4.0", obs[2].Value)
	}
}

func TestParseSeries_TimestampLayout(t *testing.T) {
	input := strings.Join([]string{
		"timestamp,value",
		"2026-01-01T06:00:00Z,10.5",
		"1767250800,11.0",
	}, "\n")

	obs, err := ParseSeries(strings.NewReader(input), types.VarTemperature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	for i, o := range obs {
		if o.Timestamp.Location() != time.UTC {
			t.Errorf("observation %d not in UTC: %v", i, o.Timestamp)
		}
	}
}

func TestParseSeries_DuplicateTimestampsKeepLast(t *testing.T) {
	input := strings.Join([]string{
		"day,hour,value",
		"2026-01-01,12,1.0",
		"2026-01-01,12,9.0",
	}, "\n")

	obs, err := ParseSeries(strings.NewReader(input), types.VarWindV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}
	if obs[0].Value != 9.0 {
		t.Errorf("value = %v, want last-seen 9.0", obs[0].Value)
	}
}

func TestParseSeries_BadHeader(t *testing.T) {
	input := "when,reading\n2026-01-01,5\n"

	if _, err := ParseSeries(strings.NewReader(input), types.VarWindU); err == nil {
		t.Fatal("expected error for unrecognized header")
	}
}

func TestParseSeries_BadRecord(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad hour", "day,hour,value\n2026-01-01,25,1.0\n"},
		{"bad day", "day,hour,value\nyesterday,5,1.0\n"},
		{"bad value", "day,hour,value\n2026-01-01,5,lots\n"},
		{"bad timestamp", "timestamp,value\nnoon,1.0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseSeries(strings.NewReader(tc.input), types.VarWindU); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func obsValues(values ...float64) []types.Observation {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]types.Observation, len(values))
	for i, v := range values {
		obs[i] = types.Observation{Timestamp: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return obs
}

func assertValues(t *testing.T, obs []types.Observation, want []float64, tolerance float64) {
	t.Helper()
	if len(obs) != len(want) {
		t.Fatalf("got %d observations, want %d", len(obs), len(want))
	}
	for i, o := range obs {
		diff := o.Value - want[i]
		if diff < -tolerance || diff > tolerance {
			t.Errorf("value %d = %v, want %v", i, o.Value, want[i])
		}
	}
}

func TestNormalize_KelvinTemperature(t *testing.T) {
	out := Normalize(types.VarTemperature, obsValues(288.15, 293.15, 273.15))
	assertValues(t, out, []float64{15, 20, 0}, 1e-9)
}

func TestNormalize_CelsiusPassthrough(t *testing.T) {
	out := Normalize(types.VarTemperature, obsValues(15, 20, -5))
	assertValues(t, out, []float64{15, 20, -5}, 0)
}

func TestNormalize_FractionalHumidity(t *testing.T) {
	out := Normalize(types.VarHumidity, obsValues(0.45, 0.80, 1.0))
	assertValues(t, out, []float64{45, 80, 100}, 1e-9)
}

func TestNormalize_PercentHumidityPassthrough(t *testing.T) {
	out := Normalize(types.VarHumidity, obsValues(45, 80))
	assertValues(t, out, []float64{45, 80}, 0)
}

func TestNormalize_PrecipitationFlux(t *testing.T) {
	out := Normalize(types.VarPrecipitation, obsValues(0.0005, 0.001))
	assertValues(t, out, []float64{1.8, 3.6}, 1e-9)
}

func TestNormalize_MillimetersPassthrough(t *testing.T) {
	out := Normalize(types.VarPrecipitation, obsValues(0, 2.5, 12))
	assertValues(t, out, []float64{0, 2.5, 12}, 0)
}

func TestNormalize_WindPassthrough(t *testing.T) {
	out := Normalize(types.VarWindU, obsValues(300, -12))
	assertValues(t, out, []float64{300, -12}, 0)
}

func TestNormalize_Empty(t *testing.T) {
	if out := Normalize(types.VarTemperature, nil); out != nil {
		t.Errorf("got %v, want nil", out)
	}
}
