package recorder

import "TrendScout/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ *SignalRecord) error          { return nil }
func (n *NoopRecorder) RecordCycle(_ *model.CycleReport) error      { return nil }
func (n *NoopRecorder) RecentSignals(_ int) ([]model.Signal, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                { return nil }
