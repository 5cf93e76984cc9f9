package model

import (
	"math"

	"github.com/moznion/go-optional"
)

// Series is an indicator output aligned index-for-index with its input
// candles. Entries inside the warm-up window are NaN.
type Series []float64

// NewSeries returns a series of length n with every entry undefined.
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Last returns the most recent value, or None when the series is empty or
// the value is undefined.
func (s Series) Last() optional.Option[float64] {
	if len(s) == 0 {
		return optional.None[float64]()
	}
	v := s[len(s)-1]
	if math.IsNaN(v) {
		return optional.None[float64]()
	}
	return optional.Some(v)
}

// IndicatorBundle holds every indicator computed for one candle window.
type IndicatorBundle struct {
	SMAShort Series // SMA 50
	SMALong  Series // SMA 200
	EMA      Series // EMA 50

	BollingerUpper  Series
	BollingerMiddle Series
	BollingerLower  Series

	CCI Series
	RSI Series
	ATR Series

	MACD       Series
	MACDSignal Series
	MACDHist   Series
}

// Len returns the candle count the bundle was computed from.
func (b *IndicatorBundle) Len() int {
	return len(b.SMALong)
}
