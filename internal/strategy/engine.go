package strategy

import (
	"fmt"
	"math"
	"time"

	"TrendScout/internal/model"
)

// Derive turns an indicator bundle into a directional signal.
//
// The trend is Up when the short SMA is strictly above the long SMA and Down
// otherwise, equality included. Entry is lastClose; take-profit and
// stop-loss sit one ATR away on either side.
func Derive(symbol, timeframe string, b *model.IndicatorBundle, lastClose float64, at time.Time) (*model.Signal, error) {
	if b == nil {
		return nil, fmt.Errorf("derive %s %s: no indicators: %w", symbol, timeframe, model.ErrInsufficientData)
	}

	short, err := b.SMAShort.Last().Take()
	if err != nil {
		return nil, fmt.Errorf("derive %s %s: short SMA undefined: %w", symbol, timeframe, model.ErrInsufficientData)
	}
	long, err := b.SMALong.Last().Take()
	if err != nil {
		return nil, fmt.Errorf("derive %s %s: long SMA undefined: %w", symbol, timeframe, model.ErrInsufficientData)
	}
	atr, err := b.ATR.Last().Take()
	if err != nil {
		return nil, fmt.Errorf("derive %s %s: ATR undefined: %w", symbol, timeframe, model.ErrInsufficientData)
	}
	// A flat window would put both targets on the entry price.
	if atr <= 0 {
		return nil, fmt.Errorf("derive %s %s: ATR %.8f not positive: %w", symbol, timeframe, atr, model.ErrInsufficientData)
	}

	trend := model.TrendDown
	if short > long {
		trend = model.TrendUp
	}

	sig := &model.Signal{
		Symbol:         symbol,
		Timeframe:      timeframe,
		Trend:          trend,
		EntryPrice:     lastClose,
		ATR:            atr,
		GeneratedAt:    at,
		PricePrecision: -1,
		RSI:            lastOrNaN(b.RSI),
		CCI:            lastOrNaN(b.CCI),
		MACDHist:       lastOrNaN(b.MACDHist),
		EMA:            lastOrNaN(b.EMA),
	}
	if trend == model.TrendUp {
		sig.TakeProfit = lastClose + atr
		sig.StopLoss = lastClose - atr
	} else {
		sig.TakeProfit = lastClose - atr
		sig.StopLoss = lastClose + atr
	}
	return sig, nil
}

func lastOrNaN(s model.Series) float64 {
	return s.Last().TakeOr(math.NaN())
}
