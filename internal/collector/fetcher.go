package collector

import (
	"context"

	"TrendScout/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// ListInstruments returns the tradable instruments quoted in the
	// configured quote asset.
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
	// FetchCandles returns up to limit candles, oldest first.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
	Name() string
}
