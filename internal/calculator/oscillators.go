package calculator

import (
	"math"

	"TrendScout/internal/model"
)

const cciConstant = 0.015

// CCI computes the commodity channel index over period using the typical
// price (H+L+C)/3. A window with zero mean deviation yields 0.
func CCI(candles []model.Candle, period int) model.Series {
	n := len(candles)
	out := model.NewSeries(n)
	if period <= 0 || n < period {
		return out
	}
	tp := make([]float64, n)
	for i, c := range candles {
		tp[i] = (c.High + c.Low + c.Close) / 3
	}
	avg := SMA(tp, period)

	for i := period - 1; i < n; i++ {
		dev := 0.0
		for _, v := range tp[i-period+1 : i+1] {
			dev += math.Abs(v - avg[i])
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - avg[i]) / (cciConstant * dev)
	}
	return out
}

// MACD computes EMA(fast) - EMA(slow), its EMA(signal) and the histogram.
// With 12/26/9 the line is defined from index 25 and signal/hist from 33.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist model.Series) {
	n := len(closes)
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line = model.NewSeries(n)
	for i := range closes {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig = EMA(line, signal)
	hist = model.NewSeries(n)
	for i := range closes {
		if math.IsNaN(line[i]) || math.IsNaN(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}
