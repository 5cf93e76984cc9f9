package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"TrendScout/internal/model"
)

// Binance request-weight and order-rate limit codes.
const (
	codeTooManyRequests = -1003
	codeTooManyOrders   = -1015
)

// BinanceFetcher implements Fetcher on Binance USDT-M perpetual futures.
type BinanceFetcher struct {
	Client     *futures.Client
	QuoteAsset string
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
// Market data endpoints do not need credentials; key and secret may be empty.
func NewBinanceFetcher(apiKey, apiSecret, quoteAsset, proxyURL string) *BinanceFetcher {
	client := futures.NewClient(apiKey, apiSecret)
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client.HTTPClient = &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
	return &BinanceFetcher{Client: client, QuoteAsset: quoteAsset}
}

func (f *BinanceFetcher) Name() string { return "binance-futures" }

func (f *BinanceFetcher) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	info, err := f.Client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, classifyBinanceError("exchange info", err)
	}

	var out []model.Instrument
	for _, s := range info.Symbols {
		if s.QuoteAsset != f.QuoteAsset || s.Status != "TRADING" || s.ContractType != futures.ContractTypePerpetual {
			continue
		}
		out = append(out, model.Instrument{
			Symbol:         s.Symbol,
			BaseAsset:      s.BaseAsset,
			QuoteAsset:     s.QuoteAsset,
			PricePrecision: s.PricePrecision,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	klines, err := f.Client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classifyBinanceError("klines "+symbol, err)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("klines %s: %w: %w", symbol, model.ErrMalformedResponse, err)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

func parseKline(k *futures.Kline) (model.Candle, error) {
	var c model.Candle
	fields := []struct {
		dst *float64
		raw string
	}{
		{&c.Open, k.Open}, {&c.High, k.High}, {&c.Low, k.Low}, {&c.Close, k.Close}, {&c.Volume, k.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return c, fmt.Errorf("parse %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	c.Time = time.UnixMilli(k.OpenTime).UTC()
	return c, nil
}

// classifyBinanceError maps client errors onto the model error kinds.
func classifyBinanceError(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeTooManyRequests || apiErr.Code == codeTooManyOrders {
			return fmt.Errorf("binance %s: %w: %w", op, model.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("binance %s: %w: %w", op, model.ErrProviderUnavailable, err)
}
