package calculator

import (
	"math"

	"TrendScout/internal/model"
)

// SMA computes the simple moving average series of values over period.
// The first defined value is at index period-1.
func SMA(values []float64, period int) model.Series {
	out := model.NewSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average series of values over period.
// Leading NaN inputs are skipped; the average is seeded with the SMA of the
// first period defined values and smoothed with k = 2/(period+1).
func EMA(values []float64, period int) model.Series {
	out := model.NewSeries(len(values))
	if period <= 0 {
		return out
	}
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	seedAt := start + period - 1
	if seedAt >= len(values) {
		return out
	}

	seed := 0.0
	for i := start; i <= seedAt; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[seedAt] = prev

	k := 2.0 / float64(period+1)
	for i := seedAt + 1; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}
