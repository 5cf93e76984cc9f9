package collector

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"TrendScout/internal/model"
)

// RateLimitedFetcher shares one token bucket between all callers of the
// wrapped fetcher.
type RateLimitedFetcher struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher allows rps requests per second with the given burst.
func NewRateLimitedFetcher(next Fetcher, rps float64, burst int) *RateLimitedFetcher {
	return &RateLimitedFetcher{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (f *RateLimitedFetcher) Name() string { return f.next.Name() }

func (f *RateLimitedFetcher) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.next.ListInstruments(ctx)
}

func (f *RateLimitedFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.next.FetchCandles(ctx, symbol, timeframe, limit)
}

func (f *RateLimitedFetcher) wait(ctx context.Context) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w: %w", f.next.Name(), model.ErrProviderUnavailable, err)
	}
	return nil
}
