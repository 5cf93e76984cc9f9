package strategy

import "TrendScout/internal/model"

// OutcomeEvaluator decides whether a signal reached its take-profit (true)
// or its stop-loss (false).
type OutcomeEvaluator interface {
	Evaluate(sig *model.Signal) bool
}

// AlwaysHit reports every signal as a take-profit hit. It does not look at
// any price data, so hit-rate statistics built on it are not meaningful.
type AlwaysHit struct{}

func (AlwaysHit) Evaluate(_ *model.Signal) bool { return true }
