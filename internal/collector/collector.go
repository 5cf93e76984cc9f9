package collector

import (
	"context"
	"fmt"
	"time"

	"TrendScout/internal/calculator"
	"TrendScout/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Instruments []model.Instrument
	Price       float64
	// Candles overrides generated data per symbol.
	Candles map[string][]model.Candle
	// Err is returned from every call when set.
	Err error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) ListInstruments(_ context.Context) ([]model.Instrument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Instruments, nil
}

func (m *MockFetcher) FetchCandles(_ context.Context, symbol, _ string, limit int) ([]model.Candle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if c, ok := m.Candles[symbol]; ok {
		return c, nil
	}
	return generateMockCandles(m.Price, limit), nil
}

// generateMockCandles returns a gently rising series around basePrice.
func generateMockCandles(basePrice float64, count int) []model.Candle {
	candles := make([]model.Candle, count)
	now := time.Now().Truncate(time.Minute)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		candles[i] = model.Candle{
			Time:   now.Add(-time.Duration(count-i) * time.Minute),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return candles
}

// Snapshot is one fetched candle window with its indicators.
type Snapshot struct {
	Candles    []model.Candle
	Indicators *model.IndicatorBundle
	LastClose  float64
}

// Collector orchestrates candle fetching and indicator computation.
type Collector struct {
	Fetcher     Fetcher
	CandleLimit int
	// Timeout bounds each provider call; zero means no extra deadline.
	Timeout time.Duration
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, candleLimit int, timeout time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, CandleLimit: candleLimit, Timeout: timeout}
}

// Instruments lists the tradable instruments under the call timeout.
func (c *Collector) Instruments(ctx context.Context) ([]model.Instrument, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	instruments, err := c.Fetcher.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments from %s: %w", c.Fetcher.Name(), err)
	}
	return instruments, nil
}

// Collect fetches candles for one pair and computes all indicators. An empty
// window is reported as insufficient data without computing anything.
func (c *Collector) Collect(ctx context.Context, symbol, timeframe string) (*Snapshot, error) {
	fetchCtx, cancel := c.withTimeout(ctx)
	candles, err := c.Fetcher.FetchCandles(fetchCtx, symbol, timeframe, c.CandleLimit)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s candles: %w", symbol, timeframe, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("fetch %s %s candles: empty window: %w", symbol, timeframe, model.ErrInsufficientData)
	}

	ind, err := calculator.Compute(candles)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", symbol, timeframe, err)
	}
	return &Snapshot{
		Candles:    candles,
		Indicators: ind,
		LastClose:  candles[len(candles)-1].Close,
	}, nil
}

func (c *Collector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
