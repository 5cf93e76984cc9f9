package metrics

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TrendScout/internal/logger"
)

// Skip reasons used as the "reason" label.
const (
	ReasonSeen         = "seen"
	ReasonFetch        = "fetch"
	ReasonRateLimited  = "rate_limited"
	ReasonInsufficient = "insufficient_data"
	ReasonMalformed    = "malformed"
	ReasonClaimed      = "claimed"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trendscout_signals_total", Help: "Signals emitted"},
		[]string{"timeframe", "trend"},
	)
	PairsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trendscout_pairs_skipped_total", Help: "Instrument/timeframe pairs skipped"},
		[]string{"reason"},
	)
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trendscout_notifications_total", Help: "Notification attempts"},
		[]string{"result"},
	)
	NewsRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trendscout_news_requests_total", Help: "News lookups"},
		[]string{"result"},
	)
	CycleFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trendscout_cycle_failures_total", Help: "Provider failures across all cycles"},
	)
	CycleBudgetExceededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trendscout_cycle_budget_exceeded_total", Help: "Cycles whose failures exceeded the error budget"},
	)
	CyclePanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trendscout_cycle_panics_total", Help: "Cycles aborted by a recovered panic"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trendscout_cycle_duration_seconds",
			Help:    "Wall time of one scan cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	LedgerSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "trendscout_ledger_symbols", Help: "Symbols that already produced a signal"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal, PairsSkippedTotal, NotificationsTotal, NewsRequestsTotal,
		CycleFailuresTotal, CycleBudgetExceededTotal, CyclePanicsTotal,
		CycleDuration, LedgerSymbols,
	)
}

// StatsFunc returns a JSON-serializable snapshot for the /stats endpoint.
type StatsFunc func() any

// NewRouter serves /metrics, /healthz and /stats.
func NewRouter(stats StatsFunc) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		body, err := sonic.Marshal(stats())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}).Methods(http.MethodGet)
	return r
}

// Serve starts the ops HTTP server in the background.
func Serve(addr string, stats StatsFunc) *http.Server {
	srv := &http.Server{Addr: addr, Handler: NewRouter(stats)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("metrics server listening on %s", addr)
	return srv
}
