package recorder

import "TrendScout/internal/model"

// SignalRecord is one emitted signal with the context it was sent with.
type SignalRecord struct {
	Signal    *model.Signal
	Sentiment model.SentimentSummary
	Articles  int
	// HitTakeProfit is the evaluated outcome at emission time.
	HitTakeProfit bool
	Notified      bool
}

// Recorder persists an audit trail of signals and scan cycles. It is never
// read back into the ledger.
type Recorder interface {
	RecordSignal(rec *SignalRecord) error
	RecordCycle(rep *model.CycleReport) error
	RecentSignals(limit int) ([]model.Signal, error)
	Close() error
}
