package ledger

import (
	"fmt"
	"sync"
	"time"

	"TrendScout/internal/model"
)

// Ledger tracks which symbols already produced a signal in this process run
// and keeps the aggregate signal statistics. It lives in memory only.
type Ledger struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	stats     model.SignalStats
	startedAt time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		seen:      make(map[string]struct{}),
		startedAt: time.Now(),
	}
}

// ShouldAnalyze reports whether symbol has not produced a signal yet.
func (l *Ledger) ShouldAnalyze(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[symbol]
	return !ok
}

// RecordSignal claims symbol. Only the first caller gets true and bumps
// TotalSignals; every later call is a no-op.
func (l *Ledger) RecordSignal(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[symbol]; ok {
		return false
	}
	l.seen[symbol] = struct{}{}
	l.stats.TotalSignals++
	return true
}

// RecordOutcome counts a take-profit (hit) or stop-loss outcome.
func (l *Ledger) RecordOutcome(hit bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stats.HitTakeProfit+l.stats.HitStopLoss >= l.stats.TotalSignals {
		return fmt.Errorf("record outcome: %d outcomes for %d signals: %w",
			l.stats.HitTakeProfit+l.stats.HitStopLoss+1, l.stats.TotalSignals, model.ErrLedgerInvariant)
	}
	if hit {
		l.stats.HitTakeProfit++
	} else {
		l.stats.HitStopLoss++
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (l *Ledger) Stats() model.SignalStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Seen returns the number of claimed symbols.
func (l *Ledger) Seen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// StartedAt is the time the ledger was created.
func (l *Ledger) StartedAt() time.Time {
	return l.startedAt
}
