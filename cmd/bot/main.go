package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"TrendScout/internal/collector"
	"TrendScout/internal/config"
	"TrendScout/internal/ledger"
	"TrendScout/internal/logger"
	"TrendScout/internal/metrics"
	"TrendScout/internal/model"
	"TrendScout/internal/news"
	"TrendScout/internal/notifier"
	"TrendScout/internal/recorder"
	"TrendScout/internal/scheduler"
	"TrendScout/internal/sentiment"
)

func main() {
	cmd := &cli.Command{
		Name:  "trendscout",
		Usage: "Scan perpetual futures for trend signals and post them to Telegram",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config `FILE`",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single scan cycle and exit",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "Log signals instead of sending them to Telegram",
				Sources: cli.EnvVars("DRY_RUN"),
			},
			&cli.BoolFlag{
				Name:  "mock-data",
				Usage: "Use generated market data instead of the exchange",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "trendscout: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dryRun := cmd.Bool("dry-run")
	if dryRun {
		cfg.Telegram.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("TrendScout starting...")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init fetcher
	var fetcher collector.Fetcher
	if cmd.Bool("mock-data") {
		fetcher = &collector.MockFetcher{
			Price: 100,
			Instruments: []model.Instrument{
				{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", PricePrecision: 2},
				{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", PricePrecision: 2},
			},
		}
	} else {
		fetcher = collector.NewBinanceFetcher(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.QuoteAsset, cfg.Proxy)
	}
	fetcher = collector.NewRateLimitedFetcher(fetcher, cfg.Exchange.RequestsPerSecond, cfg.Exchange.Burst)
	logger.Info("data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, cfg.Exchange.CandleLimit, cfg.Scan.RequestTimeout)

	// Init notifier
	var n notifier.Notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			return fmt.Errorf("init telegram: %w", err)
		}
		n = tn
	} else {
		logger.Warn("telegram disabled, signals are only logged")
		n = notifier.NewLogNotifier()
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	sched := scheduler.NewScheduler(ctx, col, ledger.New(), n, rec, scheduler.Options{
		Interval:       cfg.Scan.Interval,
		Timeframes:     cfg.Scan.Timeframes,
		Workers:        cfg.Scan.Workers,
		RequestTimeout: cfg.Scan.RequestTimeout,
		ErrorBudget:    cfg.Scan.ErrorBudget,
		Symbols:        cfg.Scan.Symbols,
		MaxInstruments: cfg.Scan.MaxInstruments,
	})
	sched.Scorer = sentiment.NewVaderScorer()
	if cfg.News.Enabled {
		sched.News = news.NewClient(cfg.News.BaseURL, cfg.News.APIKeys, cfg.News.Language, cfg.News.RequestsPerSecond, cfg.Proxy)
	} else {
		logger.Warn("news disabled, signals are sent without headlines")
	}

	if cmd.Bool("once") {
		rep := sched.RunCycle(ctx)
		logger.Info("single cycle finished: %d signals, %d failures", rep.Signals, rep.Failures)
		return nil
	}

	if err := sched.RegisterReport(cfg.Report.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, sched.Snapshot)
		defer shutdownServer(srv)
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	logger.Info("TrendScout is running. Press Ctrl+C to stop.")
	err = sched.Run(ctx)
	logger.Info("TrendScout stopped")
	return err
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown: %v", err)
	}
}
