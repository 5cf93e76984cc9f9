package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"TrendScout/internal/logger"
	"TrendScout/internal/metrics"
	"TrendScout/internal/model"
	"TrendScout/internal/notifier"
	"TrendScout/internal/recorder"
	"TrendScout/internal/sentiment"
	"TrendScout/internal/strategy"
)

type cycleCounters struct {
	pairs    atomic.Int64
	signals  atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// RunCycle makes one pass over every instrument and timeframe and returns
// its report. Provider failures are absorbed per pair.
func (s *Scheduler) RunCycle(ctx context.Context) model.CycleReport {
	start := s.now()
	var c cycleCounters

	instruments, err := s.Collector.Instruments(ctx)
	if err != nil {
		c.failures.Add(1)
		logger.Error("scan cycle: %v", err)
		instruments = nil
	}
	instruments = s.selectInstruments(instruments)

	p := pool.New().WithMaxGoroutines(s.Opts.Workers)
	for _, inst := range instruments {
		inst := inst // per-iteration copy; module targets go 1.21 loop semantics
		p.Go(func() {
			s.scanInstrument(ctx, inst, &c)
		})
	}
	p.Wait()

	report := model.CycleReport{
		StartedAt:   start,
		Duration:    s.now().Sub(start),
		Instruments: len(instruments),
		Pairs:       int(c.pairs.Load()),
		Signals:     int(c.signals.Load()),
		Skipped:     int(c.skipped.Load()),
		Failures:    int(c.failures.Load()),
	}
	s.finishCycle(&report)
	return report
}

func (s *Scheduler) selectInstruments(all []model.Instrument) []model.Instrument {
	out := all
	if len(s.Opts.Symbols) > 0 {
		allowed := make(map[string]bool, len(s.Opts.Symbols))
		for _, sym := range s.Opts.Symbols {
			allowed[sym] = true
		}
		out = out[:0:0]
		for _, inst := range all {
			if allowed[inst.Symbol] {
				out = append(out, inst)
			}
		}
	}
	if s.Opts.MaxInstruments > 0 && len(out) > s.Opts.MaxInstruments {
		out = out[:s.Opts.MaxInstruments]
	}
	return out
}

// scanInstrument walks the timeframes of one instrument in order.
func (s *Scheduler) scanInstrument(ctx context.Context, inst model.Instrument, c *cycleCounters) {
	for _, tf := range s.Opts.Timeframes {
		if ctx.Err() != nil {
			return
		}
		c.pairs.Add(1)
		s.processPair(ctx, inst, tf, c)
	}
}

func (s *Scheduler) processPair(ctx context.Context, inst model.Instrument, timeframe string, c *cycleCounters) {
	if !s.Ledger.ShouldAnalyze(inst.Symbol) {
		s.skip(c, metrics.ReasonSeen)
		return
	}

	snap, err := s.Collector.Collect(ctx, inst.Symbol, timeframe)
	if err != nil {
		s.skipOnError(c, err)
		return
	}

	sig, err := strategy.Derive(inst.Symbol, timeframe, snap.Indicators, snap.LastClose, s.now())
	if err != nil {
		s.skipOnError(c, err)
		return
	}
	sig.PricePrecision = inst.PricePrecision

	// Claim before dispatch so a symbol is never notified twice.
	if !s.Ledger.RecordSignal(inst.Symbol) {
		s.skip(c, metrics.ReasonClaimed)
		return
	}
	sig.ID = uuid.NewString()
	c.signals.Add(1)
	metrics.SignalsTotal.WithLabelValues(timeframe, string(sig.Trend)).Inc()
	metrics.LedgerSymbols.Set(float64(s.Ledger.Seen()))

	articles := s.fetchNews(ctx, inst)
	var summary model.SentimentSummary
	if s.Scorer != nil {
		summary = sentiment.Summarize(articles, s.Scorer)
	}

	logger.Info("signal %s %s %s entry=%.8g tp=%.8g sl=%.8g news=+%d/-%d",
		sig.Symbol, timeframe, sig.Trend.Side(), sig.EntryPrice, sig.TakeProfit, sig.StopLoss,
		summary.Positive, summary.Negative)

	notified := s.trySend(ctx, notifier.FormatSignal(sig, summary, articles))
	if !notified {
		c.failures.Add(1)
	}

	hit := s.Evaluator.Evaluate(sig)
	if err := s.Ledger.RecordOutcome(hit); err != nil {
		logger.Error("record outcome for %s: %v", sig.Symbol, err)
	}

	if err := s.Recorder.RecordSignal(&recorder.SignalRecord{
		Signal:        sig,
		Sentiment:     summary,
		Articles:      len(articles),
		HitTakeProfit: hit,
		Notified:      notified,
	}); err != nil {
		logger.Error("record signal: %v", err)
	}
}

// fetchNews is best effort: any failure yields an empty batch.
func (s *Scheduler) fetchNews(ctx context.Context, inst model.Instrument) []model.Article {
	if s.News == nil {
		return nil
	}
	query := inst.BaseAsset
	if query == "" {
		query = inst.Symbol
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	since := s.now().UTC().Truncate(24 * time.Hour)
	articles, err := s.News.Search(ctx, query, since)
	if err != nil {
		metrics.NewsRequestsTotal.WithLabelValues("failed").Inc()
		logger.Warn("news for %s unavailable: %v", inst.Symbol, err)
		return nil
	}
	metrics.NewsRequestsTotal.WithLabelValues("ok").Inc()
	return articles
}

func (s *Scheduler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Opts.RequestTimeout)
}

func (s *Scheduler) skip(c *cycleCounters, reason string) {
	c.skipped.Add(1)
	metrics.PairsSkippedTotal.WithLabelValues(reason).Inc()
}

// skipOnError classifies a pair-level error. Short or flat windows are not
// provider failures and do not count against the error budget.
func (s *Scheduler) skipOnError(c *cycleCounters, err error) {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		logger.Debug("skip: %v", err)
		s.skip(c, metrics.ReasonInsufficient)
		return
	case errors.Is(err, model.ErrRateLimited):
		s.skip(c, metrics.ReasonRateLimited)
	case errors.Is(err, model.ErrMalformedResponse):
		s.skip(c, metrics.ReasonMalformed)
	default:
		s.skip(c, metrics.ReasonFetch)
	}
	c.failures.Add(1)
	logger.Warn("skip: %v", err)
}

func (s *Scheduler) finishCycle(rep *model.CycleReport) {
	s.mu.Lock()
	s.lastReport = rep
	s.mu.Unlock()

	metrics.CycleDuration.Observe(rep.Duration.Seconds())
	metrics.CycleFailuresTotal.Add(float64(rep.Failures))
	metrics.LedgerSymbols.Set(float64(s.Ledger.Seen()))

	logger.Info("scan cycle done in %v: instruments=%d pairs=%d signals=%d skipped=%d failures=%d",
		rep.Duration.Round(time.Millisecond), rep.Instruments, rep.Pairs, rep.Signals, rep.Skipped, rep.Failures)
	if rep.Failures > s.Opts.ErrorBudget {
		metrics.CycleBudgetExceededTotal.Inc()
		logger.Warn("scan cycle failures %d exceed error budget %d", rep.Failures, s.Opts.ErrorBudget)
	}

	if err := s.Recorder.RecordCycle(rep); err != nil {
		logger.Error("record cycle: %v", err)
	}
}
