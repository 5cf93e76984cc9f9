package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"TrendScout/internal/collector"
	"TrendScout/internal/ledger"
	"TrendScout/internal/metrics"
	"TrendScout/internal/model"
	"TrendScout/internal/notifier"
	"TrendScout/internal/recorder"
	"TrendScout/internal/sentiment"
)

var fixedNow = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

// ascending builds n bars with close = start+i and a constant true range of 2.
func ascending(n int, start float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		c := start + float64(i)
		candles[i] = model.Candle{
			Time:  fixedNow.Add(time.Duration(i-n) * time.Minute),
			Open:  c - 0.5,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return candles
}

func flat(n int, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return candles
}

var btc = model.Instrument{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", PricePrecision: 2}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return n.err
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, since time.Time) ([]model.Article, error) {
	args := m.Called(ctx, query, since)
	articles, _ := args.Get(0).([]model.Article)
	return articles, args.Error(1)
}

// countingFetcher records candle fetches per symbol.
type countingFetcher struct {
	*collector.MockFetcher
	mu    sync.Mutex
	calls map[string]int
}

func (f *countingFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	f.mu.Unlock()
	return f.MockFetcher.FetchCandles(ctx, symbol, timeframe, limit)
}

// failingCandles lists instruments but fails every candle request.
type failingCandles struct {
	*collector.MockFetcher
	err error
}

func (f *failingCandles) FetchCandles(_ context.Context, _, _ string, _ int) ([]model.Candle, error) {
	return nil, f.err
}

func newTestScheduler(f collector.Fetcher, n notifier.Notifier, opts Options) *Scheduler {
	if opts.Timeframes == nil {
		opts.Timeframes = []string{"1m", "5m", "15m"}
	}
	s := NewScheduler(context.Background(), collector.NewCollector(f, 250, time.Second),
		ledger.New(), n, recorder.NewNoopRecorder(), opts)
	s.now = func() time.Time { return fixedNow }
	return s
}

type SchedulerTestSuite struct {
	suite.Suite
	fetcher  *countingFetcher
	notifier *recordingNotifier
	sched    *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.fetcher = &countingFetcher{MockFetcher: &collector.MockFetcher{
		Instruments: []model.Instrument{btc},
		Candles:     map[string][]model.Candle{"BTCUSDT": ascending(250, 100)},
	}}
	s.notifier = &recordingNotifier{}
	s.sched = newTestScheduler(s.fetcher, s.notifier, Options{ErrorBudget: 5})
}

func (s *SchedulerTestSuite) TestAscendingSeriesEmitsLong() {
	rep := s.sched.RunCycle(context.Background())

	msgs := s.notifier.Messages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0], "<b>BTCUSDT</b> | 1m")
	s.Contains(msgs[0], "Signal: <b>LONG</b>")
	s.Contains(msgs[0], "Entry: 349.00")
	s.Contains(msgs[0], "Take Profit: 351.00")
	s.Contains(msgs[0], "Stop Loss: 347.00")

	s.Equal(model.CycleReport{
		StartedAt: fixedNow, Instruments: 1, Pairs: 3, Signals: 1, Skipped: 2,
	}, rep)
	s.Equal(model.SignalStats{TotalSignals: 1, HitTakeProfit: 1}, s.sched.Ledger.Stats())
}

func (s *SchedulerTestSuite) TestLaterTimeframesSkippedWithoutFetch() {
	s.sched.RunCycle(context.Background())
	s.Equal(1, s.fetcher.calls["BTCUSDT"])
	s.False(s.sched.Ledger.ShouldAnalyze("BTCUSDT"))
}

func (s *SchedulerTestSuite) TestSecondCycleDoesNotRepeat() {
	s.sched.RunCycle(context.Background())
	rep := s.sched.RunCycle(context.Background())

	s.Len(s.notifier.Messages(), 1)
	s.Equal(0, rep.Signals)
	s.Equal(3, rep.Skipped)
	s.Equal(1, s.sched.Ledger.Stats().TotalSignals)
}

func (s *SchedulerTestSuite) TestEmptyCandlesSkipsPair() {
	s.fetcher.Candles["BTCUSDT"] = []model.Candle{}
	rep := s.sched.RunCycle(context.Background())

	s.Empty(s.notifier.Messages())
	s.True(s.sched.Ledger.ShouldAnalyze("BTCUSDT"))
	s.Equal(model.SignalStats{}, s.sched.Ledger.Stats())
	s.Equal(3, rep.Skipped)
	s.Equal(0, rep.Failures)
}

func (s *SchedulerTestSuite) TestFlatWindowSkipsPair() {
	s.fetcher.Candles["BTCUSDT"] = flat(250, 10)
	rep := s.sched.RunCycle(context.Background())

	s.Empty(s.notifier.Messages())
	s.Equal(3, rep.Skipped)
	s.Equal(0, s.sched.Ledger.Stats().TotalSignals)
}

func (s *SchedulerTestSuite) TestNewsSentimentInMessage() {
	searcher := &mockSearcher{}
	articles := []model.Article{
		{Title: "pos one", URL: "https://example.com/1"},
		{Title: "pos two"},
		{Title: "neg one"},
		{Title: "flat one"},
		{Title: "flat two"},
	}
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	searcher.On("Search", mock.Anything, "BTC", today).Return(articles, nil).Once()

	s.sched.News = searcher
	s.sched.Scorer = sentiment.ScorerFunc(func(text string) float64 {
		switch {
		case strings.HasPrefix(text, "pos"):
			return 0.5
		case strings.HasPrefix(text, "neg"):
			return -0.5
		}
		return 0
	})

	s.sched.RunCycle(context.Background())

	msgs := s.notifier.Messages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0], "👍 2 positive / 👎 1 negative")
	s.Contains(msgs[0], `<a href="https://example.com/1">pos one</a>`)
	s.Contains(msgs[0], "- pos two (No URL provided)")
	s.Contains(msgs[0], "- neg one")
	s.NotContains(msgs[0], "flat one")
	searcher.AssertExpectations(s.T())
}

func (s *SchedulerTestSuite) TestNewsFailureStillNotifies() {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, "BTC", mock.AnythingOfType("time.Time")).
		Return(nil, fmt.Errorf("all keys throttled: %w", model.ErrRateLimited))
	s.sched.News = searcher
	s.sched.Scorer = sentiment.ScorerFunc(func(string) float64 { return 1 })

	rep := s.sched.RunCycle(context.Background())

	msgs := s.notifier.Messages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0], "👍 0 positive / 👎 0 negative")
	s.Contains(msgs[0], "No recent articles")
	s.Equal(1, rep.Signals)
}

func (s *SchedulerTestSuite) TestSendFailureKeepsClaim() {
	s.notifier.err = errors.New("telegram down")

	rep := s.sched.RunCycle(context.Background())
	s.Equal(1, rep.Signals)
	s.Equal(1, rep.Failures)
	s.Equal(1, s.sched.Ledger.Stats().TotalSignals)

	s.sched.RunCycle(context.Background())
	s.Len(s.notifier.Messages(), 1)
}

func (s *SchedulerTestSuite) TestInstrumentListFailure() {
	s.fetcher.Err = fmt.Errorf("dial: %w", model.ErrProviderUnavailable)
	rep := s.sched.RunCycle(context.Background())

	s.Equal(0, rep.Instruments)
	s.Equal(1, rep.Failures)
	s.Empty(s.notifier.Messages())
}

func (s *SchedulerTestSuite) TestCancelledContextStopsPairs() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := s.sched.RunCycle(ctx)
	s.Equal(0, rep.Pairs)
	s.Empty(s.notifier.Messages())
}

func (s *SchedulerTestSuite) TestSnapshot() {
	s.Nil(s.sched.LastReport())
	s.sched.RunCycle(context.Background())

	snap, ok := s.sched.Snapshot().(StatsSnapshot)
	s.Require().True(ok)
	s.Equal(1, snap.TotalSignals)
	s.Equal(1, snap.HitTakeProfit)
	s.Equal(1, snap.Symbols)
	s.Require().NotNil(snap.LastCycle)
	s.Equal(1, snap.LastCycle.Signals)
}

func (s *SchedulerTestSuite) TestHandleCommand() {
	s.Equal("pong", s.sched.HandleCommand("/ping"))
	s.Contains(s.sched.HandleCommand("/stats"), "Signals: 0 (0 symbols)")
	s.Equal("No signals yet.", s.sched.HandleCommand("/recent"))
	s.Contains(s.sched.HandleCommand("/unknown"), "/stats")

	s.sched.RunCycle(context.Background())
	s.Contains(s.sched.HandleCommand("/stats"), "Signals: 1 (1 symbols)")
}

func (s *SchedulerTestSuite) TestRegisterReport() {
	s.NoError(s.sched.RegisterReport(""))
	s.Len(s.sched.Cron.Entries(), 0)
	s.Error(s.sched.RegisterReport("every tuesday"))
	s.NoError(s.sched.RegisterReport("0 0 * * * *"))
	s.Len(s.sched.Cron.Entries(), 1)
}

func (s *SchedulerTestSuite) TestReportTaskSendsStats() {
	s.sched.reportTask()
	msgs := s.notifier.Messages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0], "TrendScout stats")
}

func TestRunCycle_ErrorBudget(t *testing.T) {
	f := &failingCandles{
		MockFetcher: &collector.MockFetcher{Instruments: []model.Instrument{btc, {Symbol: "ETHUSDT", BaseAsset: "ETH"}}},
		err:         fmt.Errorf("timeout: %w", model.ErrProviderUnavailable),
	}
	s := newTestScheduler(f, &recordingNotifier{}, Options{ErrorBudget: 2})

	before := testutil.ToFloat64(metrics.CycleBudgetExceededTotal)
	rep := s.RunCycle(context.Background())

	assert.Equal(t, 6, rep.Failures)
	assert.Equal(t, 6, rep.Skipped)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CycleBudgetExceededTotal))
}

func TestRunCycle_WorkerPoolEmitsOncePerSymbol(t *testing.T) {
	var instruments []model.Instrument
	for i := 0; i < 12; i++ {
		instruments = append(instruments, model.Instrument{Symbol: fmt.Sprintf("C%02dUSDT", i), BaseAsset: fmt.Sprintf("C%02d", i), PricePrecision: 4})
	}
	n := &recordingNotifier{}
	s := newTestScheduler(&collector.MockFetcher{Instruments: instruments, Price: 50}, n, Options{Workers: 4})

	rep := s.RunCycle(context.Background())

	require.Len(t, n.Messages(), 12)
	seen := make(map[string]int)
	for _, msg := range n.Messages() {
		for _, inst := range instruments {
			if strings.Contains(msg, "<b>"+inst.Symbol+"</b>") {
				seen[inst.Symbol]++
			}
		}
	}
	assert.Len(t, seen, 12)
	for sym, count := range seen {
		assert.Equal(t, 1, count, sym)
	}
	assert.Equal(t, 12, rep.Signals)
	assert.Equal(t, 12, s.Ledger.Stats().TotalSignals)
}

func TestRunCycle_SymbolFilterAndCap(t *testing.T) {
	f := &collector.MockFetcher{
		Instruments: []model.Instrument{{Symbol: "AUSDT"}, {Symbol: "BUSDT"}, {Symbol: "CUSDT"}},
		Price:       10,
	}
	n := &recordingNotifier{}
	s := newTestScheduler(f, n, Options{Symbols: []string{"BUSDT", "CUSDT"}, MaxInstruments: 1})

	rep := s.RunCycle(context.Background())

	assert.Equal(t, 1, rep.Instruments)
	require.Len(t, n.Messages(), 1)
	assert.Contains(t, n.Messages()[0], "BUSDT")
}

func TestRunCycle_RecordsSignals(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	defer rec.Close()

	f := &collector.MockFetcher{
		Instruments: []model.Instrument{btc},
		Candles:     map[string][]model.Candle{"BTCUSDT": ascending(250, 100)},
	}
	s := newTestScheduler(f, &recordingNotifier{}, Options{})
	s.Recorder = rec

	s.RunCycle(context.Background())

	got, err := rec.RecentSignals(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, model.TrendUp, got[0].Trend)
	assert.Contains(t, s.HandleCommand("/recent"), "BTCUSDT 1m <b>LONG</b> @ 349.00")
}

// panickyFetcher panics on its first listing and cancels the run on its second.
type panickyFetcher struct {
	collector.MockFetcher
	calls  atomic.Int32
	cancel context.CancelFunc
}

func (f *panickyFetcher) ListInstruments(_ context.Context) ([]model.Instrument, error) {
	if f.calls.Add(1) == 1 {
		panic("exchange client bug")
	}
	f.cancel()
	return nil, nil
}

func TestRun_RecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &panickyFetcher{cancel: cancel}
	s := newTestScheduler(f, &recordingNotifier{}, Options{Interval: time.Millisecond})

	before := testutil.ToFloat64(metrics.CyclePanicsTotal)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.EqualValues(t, 2, f.calls.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CyclePanicsTotal))
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &countingFetcher{MockFetcher: &collector.MockFetcher{Instruments: []model.Instrument{btc}, Price: 10}}
	s := newTestScheduler(f, &recordingNotifier{}, Options{Interval: time.Hour})

	assert.NoError(t, s.Run(ctx))
	assert.Empty(t, f.calls)
	assert.Nil(t, s.LastReport())
}
