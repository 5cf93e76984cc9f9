package model

import "time"

// Candle represents a single OHLCV bar. Sequences are ordered oldest first.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Instrument is a tradable perpetual futures contract.
type Instrument struct {
	Symbol         string // e.g. BTCUSDT
	BaseAsset      string // e.g. BTC, used as the news query
	QuoteAsset     string
	PricePrecision int // decimal places for price formatting, negative when unknown
}

// Closes extracts the close prices of the given candles.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
