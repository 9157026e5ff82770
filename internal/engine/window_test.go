package engine

import (
	"testing"
	"time"

	"skycast/internal/types"
)

func assessedAt(tss ...time.Time) []AssessedPoint {
	pts := make([]AssessedPoint, len(tss))
	for i, ts := range tss {
		pts[i] = AssessedPoint{Point: types.ForecastPoint{Timestamp: ts}}
	}
	return pts
}

func TestFilterWindow_AllDay(t *testing.T) {
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	points := assessedAt(
		target.Add(-3*time.Hour),  // previous day
		target,                    // 00:00 (included)
		target.Add(12*time.Hour),  // midday
		target.Add(21*time.Hour),  // 21:00
		target.Add(24*time.Hour),  // next day 00:00 (excluded)
		target.Add(27*time.Hour),  // next day
	)

	got := FilterWindow(points, target, HourAll())
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if !got[0].Point.Timestamp.Equal(target) {
		t.Errorf("first point = %v, want %v", got[0].Point.Timestamp, target)
	}
	if !got[2].Point.Timestamp.Equal(target.Add(21 * time.Hour)) {
		t.Errorf("last point = %v, want %v", got[2].Point.Timestamp, target.Add(21*time.Hour))
	}
}

func TestFilterWindow_ExactHour(t *testing.T) {
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	wanted := target.Add(9 * time.Hour)

	points := assessedAt(
		target.Add(8*time.Hour),
		wanted,
		target.Add(10*time.Hour),
	)

	got := FilterWindow(points, target, HourAt(9))
	if len(got) != 1 {
		t.Fatalf("got %d points, want 1", len(got))
	}
	if !got[0].Point.Timestamp.Equal(wanted) {
		t.Errorf("point = %v, want %v", got[0].Point.Timestamp, wanted)
	}
}

func TestFilterWindow_NearestFallback(t *testing.T) {
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	// No point at 09:00; 10:00 is 1h away, 06:00 is 3h away.
	points := assessedAt(
		target.Add(6*time.Hour),
		target.Add(10*time.Hour),
	)

	got := FilterWindow(points, target, HourAt(9))
	if len(got) != 1 {
		t.Fatalf("got %d points, want 1", len(got))
	}
	if !got[0].Point.Timestamp.Equal(target.Add(10 * time.Hour)) {
		t.Errorf("point = %v, want the closer 10:00 sample", got[0].Point.Timestamp)
	}
}

func TestFilterWindow_NearestTieGoesToEarlier(t *testing.T) {
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	// 08:00 and 10:00 are both 1h from 09:00; the earlier point wins.
	points := assessedAt(
		target.Add(8*time.Hour),
		target.Add(10*time.Hour),
	)

	got := FilterWindow(points, target, HourAt(9))
	if len(got) != 1 {
		t.Fatalf("got %d points, want 1", len(got))
	}
	if !got[0].Point.Timestamp.Equal(target.Add(8 * time.Hour)) {
		t.Errorf("point = %v, want the earlier 08:00 sample", got[0].Point.Timestamp)
	}
}

func TestFilterWindow_Empty(t *testing.T) {
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	if got := FilterWindow(nil, target, HourAt(9)); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	// Unsorted on purpose.
	sample := []float64{5, 1, 3, 2, 4}

	s := Summarize(sample)

	if s.Mean != 3 {
		t.Errorf("Mean = %v, want 3", s.Mean)
	}
	// Sample std of 1..5 is sqrt(2.5) = 1.5811 -> 1.58
	if s.Std != 1.58 {
		t.Errorf("Std = %v, want 1.58", s.Std)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("Min/Max = %v/%v, want 1/5", s.Min, s.Max)
	}
	// Nearest-rank on sorted [1 2 3 4 5]: idx(0.25)=1, idx(0.75)=3, idx(0.90)=4.
	if s.P25 != 2 {
		t.Errorf("P25 = %v, want 2", s.P25)
	}
	if s.P75 != 4 {
		t.Errorf("P75 = %v, want 4", s.P75)
	}
	if s.P90 != 5 {
		t.Errorf("P90 = %v, want 5", s.P90)
	}
}

func TestSummarize_SingleSample(t *testing.T) {
	s := Summarize([]float64{7})

	if s.Mean != 7 || s.Min != 7 || s.Max != 7 {
		t.Errorf("Mean/Min/Max = %v/%v/%v, want all 7", s.Mean, s.Min, s.Max)
	}
	if s.Std != 0 {
		t.Errorf("Std = %v, want 0 for a single sample", s.Std)
	}
	if s.P25 != 7 || s.P75 != 7 || s.P90 != 7 {
		t.Errorf("percentiles = %v/%v/%v, want all 7", s.P25, s.P75, s.P90)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (types.Statistics{}) {
		t.Fatalf("expected zero statistics for empty sample, got %+v", s)
	}
}
