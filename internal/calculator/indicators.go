package calculator

import (
	"fmt"

	"TrendScout/internal/model"
)

// Indicator periods.
const (
	PeriodSMAShort  = 50
	PeriodSMALong   = 200
	PeriodEMA       = 50
	PeriodBollinger = 20
	BollingerK      = 2.0
	PeriodCCI       = 14
	PeriodRSI       = 14
	PeriodATR       = 14
	PeriodMACDFast  = 12
	PeriodMACDSlow  = 26
	PeriodMACDSig   = 9

	// MinCandles is the largest period above; shorter windows are rejected.
	MinCandles = PeriodSMALong
)

// Compute derives the full indicator bundle from an oldest-first candle
// window. Every series in the result has len(candles) entries.
func Compute(candles []model.Candle) (*model.IndicatorBundle, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("compute indicators: %d candles, need %d: %w",
			len(candles), MinCandles, model.ErrInsufficientData)
	}

	closes := model.Closes(candles)
	upper, middle, lower := Bollinger(closes, PeriodBollinger, BollingerK)
	macd, macdSig, macdHist := MACD(closes, PeriodMACDFast, PeriodMACDSlow, PeriodMACDSig)

	return &model.IndicatorBundle{
		SMAShort:        SMA(closes, PeriodSMAShort),
		SMALong:         SMA(closes, PeriodSMALong),
		EMA:             EMA(closes, PeriodEMA),
		BollingerUpper:  upper,
		BollingerMiddle: middle,
		BollingerLower:  lower,
		CCI:             CCI(candles, PeriodCCI),
		RSI:             RSI(closes, PeriodRSI),
		ATR:             ATR(candles, PeriodATR),
		MACD:            macd,
		MACDSignal:      macdSig,
		MACDHist:        macdHist,
	}, nil
}
