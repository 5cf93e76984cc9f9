package model

import "time"

// Trend is the direction derived from the moving-average comparison.
type Trend string

const (
	TrendUp   Trend = "Up"
	TrendDown Trend = "Down"
)

// Side returns the position label used in notifications.
func (t Trend) Side() string {
	if t == TrendUp {
		return "LONG"
	}
	return "SHORT"
}

// Signal is a directional call with its targets.
type Signal struct {
	ID          string
	Symbol      string
	Timeframe   string
	Trend       Trend
	EntryPrice  float64
	TakeProfit  float64
	StopLoss    float64
	ATR         float64
	GeneratedAt time.Time

	// Decimal places used for prices in messages; negative means unknown.
	PricePrecision int

	// Snapshot of the indicators at the signal bar, NaN when undefined.
	RSI      float64
	CCI      float64
	MACDHist float64
	EMA      float64
}

// SignalStats are process-lifetime counters. All fields only grow.
type SignalStats struct {
	TotalSignals  int
	HitTakeProfit int
	HitStopLoss   int
}

// Pending returns the number of signals without a recorded outcome.
func (s SignalStats) Pending() int {
	return s.TotalSignals - s.HitTakeProfit - s.HitStopLoss
}

// CycleReport summarizes one pass over the instrument list.
type CycleReport struct {
	StartedAt   time.Time
	Duration    time.Duration
	Instruments int
	Pairs       int
	Signals     int
	Skipped     int
	Failures    int
}
