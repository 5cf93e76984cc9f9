package calculator

import (
	"math"

	"TrendScout/internal/model"
)

// Bollinger computes the middle, upper and lower bands: SMA(period) and
// SMA ± k·σ, where σ is the population standard deviation of the window.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower model.Series) {
	n := len(closes)
	middle = SMA(closes, period)
	upper = model.NewSeries(n)
	lower = model.NewSeries(n)
	if period <= 0 {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		mean := middle[i]
		variance := 0.0
		for _, v := range closes[i-period+1 : i+1] {
			d := v - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
	}
	return upper, middle, lower
}

// TrueRange returns max(H-L, |H-prevC|, |L-prevC|) from index 1 on.
// Index 0 has no previous close and is left undefined.
func TrueRange(candles []model.Candle) model.Series {
	out := model.NewSeries(len(candles))
	for i := 1; i < len(candles); i++ {
		c, prevClose := candles[i], candles[i-1].Close
		out[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return out
}

// ATR computes the Wilder-smoothed average true range. The first value is at
// index period and equals the mean of TR[1..period].
func ATR(candles []model.Candle, period int) model.Series {
	out := model.NewSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}
	tr := TrueRange(candles)

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = prev

	for i := period + 1; i < len(candles); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}
	return out
}
