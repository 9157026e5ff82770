package engine

import (
	"math"
	"sort"
	"time"

	"skycast/internal/types"
)

// AssessedPoint pairs an aligned forecast point with its risk assessment.
type AssessedPoint struct {
	Point      types.ForecastPoint
	Assessment types.OverallAssessment
}

// FilterWindow selects the subset of points matching the requested date and
// hour selector.
//
// For "all", every point whose timestamp falls on the target UTC calendar day
// survives (00:00 inclusive, next-day 00:00 exclusive). For a specific hour,
// points matching the target instant exactly are returned; when none match,
// the single nearest point by absolute time distance is returned instead
// (earlier point wins ties), so the result is only empty when points is.
func FilterWindow(points []AssessedPoint, targetDate time.Time, hour HourSelector) []AssessedPoint {
	if len(points) == 0 {
		return nil
	}

	dayStart := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, time.UTC)

	if hour.All() {
		dayEnd := dayStart.Add(24 * time.Hour)
		var out []AssessedPoint
		for _, p := range points {
			ts := p.Point.Timestamp
			if !ts.Before(dayStart) && ts.Before(dayEnd) {
				out = append(out, p)
			}
		}
		return out
	}

	target := dayStart.Add(time.Duration(hour.Hour()) * time.Hour)

	var exact []AssessedPoint
	for _, p := range points {
		if p.Point.Timestamp.Equal(target) {
			exact = append(exact, p)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	best := 0
	bestDist := absDuration(points[0].Point.Timestamp.Sub(target))
	for i := 1; i < len(points); i++ {
		if d := absDuration(points[i].Point.Timestamp.Sub(target)); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return points[best : best+1]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Summarize computes distributional statistics over a sample: mean, sample
// standard deviation (0 for fewer than 2 samples), min, max, and p25/p75/p90
// by nearest-rank indexing into the sorted sample. Returns the zero value for
// an empty sample.
func Summarize(sample []float64) types.Statistics {
	n := len(sample)
	if n == 0 {
		return types.Statistics{}
	}

	sorted := make([]float64, n)
	copy(sorted, sample)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var std float64
	if n >= 2 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}

	return types.Statistics{
		Mean: round2(mean),
		Std:  round2(std),
		Min:  round2(sorted[0]),
		Max:  round2(sorted[n-1]),
		P25:  round2(percentile(sorted, 0.25)),
		P75:  round2(percentile(sorted, 0.75)),
		P90:  round2(percentile(sorted, 0.90)),
	}
}

// percentile picks the nearest-rank element: index floor(n*p) clamped into
// the valid range. For samples of 10 or fewer points p90 resolves to the last
// element.
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
