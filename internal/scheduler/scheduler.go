package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"TrendScout/internal/collector"
	"TrendScout/internal/ledger"
	"TrendScout/internal/logger"
	"TrendScout/internal/metrics"
	"TrendScout/internal/model"
	"TrendScout/internal/news"
	"TrendScout/internal/notifier"
	"TrendScout/internal/recorder"
	"TrendScout/internal/sentiment"
	"TrendScout/internal/strategy"
)

// Options controls the scan loop.
type Options struct {
	Interval       time.Duration
	Timeframes     []string
	Workers        int
	RequestTimeout time.Duration
	// ErrorBudget is the number of provider failures tolerated per cycle
	// before a warning is raised.
	ErrorBudget int
	// Symbols restricts the scan to these instruments when non-empty.
	Symbols []string
	// MaxInstruments caps the instruments scanned per cycle; zero is no cap.
	MaxInstruments int
}

// Scheduler runs the scan loop and the cron report job.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Ledger    *ledger.Ledger
	// News may be nil, in which case signals are sent without headlines.
	News      news.Searcher
	Scorer    sentiment.Scorer
	Evaluator strategy.OutcomeEvaluator
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Opts      Options
	Ctx       context.Context

	now func() time.Time

	mu         sync.Mutex
	lastReport *model.CycleReport
}

// NewScheduler creates a new Scheduler. ctx bounds cron jobs.
func NewScheduler(ctx context.Context, col *collector.Collector, l *ledger.Ledger, n notifier.Notifier, rec recorder.Recorder, opts Options) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Ledger:    l,
		Evaluator: strategy.AlwaysHit{},
		Notifier:  n,
		Recorder:  rec,
		Opts:      opts,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// RegisterReport schedules the periodic stats report. An empty expression
// disables it.
func (s *Scheduler) RegisterReport(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(expr, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// Run executes scan cycles until ctx is cancelled, sleeping Opts.Interval
// between cycles. A panicking cycle is logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("scan loop started: interval=%v timeframes=%v workers=%d",
		s.Opts.Interval, s.Opts.Timeframes, s.Opts.Workers)
	for ctx.Err() == nil {
		s.safeCycle(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(s.Opts.Interval):
		}
	}
	logger.Info("scan loop stopped")
	return nil
}

func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclePanicsTotal.Inc()
			logger.Error("scan cycle panic: %v\n%s", r, debug.Stack())
		}
	}()
	s.RunCycle(ctx)
}

// LastReport returns the most recent cycle report, or nil before the first
// cycle completes.
func (s *Scheduler) LastReport() *model.CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

func (s *Scheduler) reportTask() {
	logger.Info("running stats report task")
	s.trySend(s.Ctx, s.statsText())
}

func (s *Scheduler) statsText() string {
	return notifier.FormatStats(s.Ledger.Stats(), s.Ledger.Seen(), s.Ledger.StartedAt(), s.now())
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/stats":
		return s.statsText()
	case "/recent":
		signals, err := s.Recorder.RecentSignals(10)
		if err != nil {
			logger.Error("load recent signals: %v", err)
			return "Recent signals are unavailable."
		}
		return notifier.FormatRecent(signals, s.now())
	case "/ping":
		return "pong"
	default:
		return notifier.FormatHelp()
	}
}

// StatsSnapshot is served on the ops /stats endpoint.
type StatsSnapshot struct {
	StartedAt     time.Time          `json:"started_at"`
	TotalSignals  int                `json:"total_signals"`
	HitTakeProfit int                `json:"hit_take_profit"`
	HitStopLoss   int                `json:"hit_stop_loss"`
	Symbols       int                `json:"symbols"`
	LastCycle     *model.CycleReport `json:"last_cycle,omitempty"`
}

// Snapshot returns the current ledger counters and last cycle report.
func (s *Scheduler) Snapshot() any {
	st := s.Ledger.Stats()
	return StatsSnapshot{
		StartedAt:     s.Ledger.StartedAt(),
		TotalSignals:  st.TotalSignals,
		HitTakeProfit: st.HitTakeProfit,
		HitStopLoss:   st.HitStopLoss,
		Symbols:       s.Ledger.Seen(),
		LastCycle:     s.LastReport(),
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) bool {
	if err := s.Notifier.Send(ctx, text); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		logger.Error("send notification: %v", err)
		return false
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return true
}
