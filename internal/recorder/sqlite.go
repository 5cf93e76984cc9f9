package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"TrendScout/internal/logger"
	"TrendScout/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id              TEXT PRIMARY KEY,
			generated_at    INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			timeframe       TEXT NOT NULL,
			trend           TEXT NOT NULL,
			entry_price     REAL NOT NULL,
			take_profit     REAL NOT NULL,
			stop_loss       REAL NOT NULL,
			atr             REAL NOT NULL,
			price_precision INTEGER,
			rsi             REAL,
			cci             REAL,
			macd_hist       REAL,
			ema             REAL,
			news_positive   INTEGER,
			news_negative   INTEGER,
			news_articles   INTEGER,
			hit_take_profit INTEGER,
			notified        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(generated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			instruments INTEGER,
			pairs       INTEGER,
			signals     INTEGER,
			skipped     INTEGER,
			failures    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(rec *SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig := rec.Signal
	_, err := sq.Insert("signals").
		Columns("id", "generated_at", "symbol", "timeframe", "trend",
			"entry_price", "take_profit", "stop_loss", "atr", "price_precision",
			"rsi", "cci", "macd_hist", "ema",
			"news_positive", "news_negative", "news_articles",
			"hit_take_profit", "notified").
		Values(sig.ID, sig.GeneratedAt.UnixMilli(), sig.Symbol, sig.Timeframe, string(sig.Trend),
			sig.EntryPrice, sig.TakeProfit, sig.StopLoss, sig.ATR, sig.PricePrecision,
			nullable(sig.RSI), nullable(sig.CCI), nullable(sig.MACDHist), nullable(sig.EMA),
			rec.Sentiment.Positive, rec.Sentiment.Negative, rec.Articles,
			rec.HitTakeProfit, rec.Notified).
		RunWith(r.db).
		Exec()
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", sig.Symbol, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rep *model.CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := sq.Insert("cycles").
		Columns("started_at", "duration_ms", "instruments", "pairs", "signals", "skipped", "failures").
		Values(rep.StartedAt.UnixMilli(), rep.Duration.Milliseconds(),
			rep.Instruments, rep.Pairs, rep.Signals, rep.Skipped, rep.Failures).
		RunWith(r.db).
		Exec()
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// RecentSignals returns up to limit signals, newest first.
func (r *SQLiteRecorder) RecentSignals(limit int) ([]model.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := sq.Select("id", "generated_at", "symbol", "timeframe", "trend",
		"entry_price", "take_profit", "stop_loss", "atr", "price_precision",
		"rsi", "cci", "macd_hist", "ema").
		From("signals").
		OrderBy("generated_at DESC").
		Limit(uint64(limit)).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var (
			s                   model.Signal
			ts                  int64
			trend               string
			rsi, cci, hist, ema sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &ts, &s.Symbol, &s.Timeframe, &trend,
			&s.EntryPrice, &s.TakeProfit, &s.StopLoss, &s.ATR, &s.PricePrecision,
			&rsi, &cci, &hist, &ema); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.GeneratedAt = time.UnixMilli(ts).UTC()
		s.Trend = model.Trend(trend)
		s.RSI, s.CCI, s.MACDHist, s.EMA = orNaN(rsi), orNaN(cci), orNaN(hist), orNaN(ema)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
