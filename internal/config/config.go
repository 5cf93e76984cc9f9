package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token" validate:"required_if=Enabled true"`
		ChatID   int64  `yaml:"chat_id" validate:"required_if=Enabled true"`
	} `yaml:"telegram"`
	Exchange struct {
		APIKey            string  `yaml:"api_key"`
		APISecret         string  `yaml:"api_secret"`
		QuoteAsset        string  `yaml:"quote_asset" validate:"required"`
		CandleLimit       int     `yaml:"candle_limit" validate:"gte=200,lte=1500"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
		Burst             int     `yaml:"burst" validate:"gte=1"`
	} `yaml:"exchange"`
	News struct {
		Enabled           bool     `yaml:"enabled"`
		BaseURL           string   `yaml:"base_url" validate:"omitempty,url"`
		APIKeys           []string `yaml:"api_keys"`
		Language          string   `yaml:"language"`
		RequestsPerSecond float64  `yaml:"requests_per_second" validate:"gt=0"`
	} `yaml:"news"`
	Scan struct {
		Interval       time.Duration `yaml:"interval" validate:"gte=1s"`
		Timeframes     []string      `yaml:"timeframes" validate:"min=1,dive,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w"`
		Workers        int           `yaml:"workers" validate:"gte=1,lte=64"`
		RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
		ErrorBudget    int           `yaml:"error_budget" validate:"gte=0"`
		Symbols        []string      `yaml:"symbols"`
		MaxInstruments int           `yaml:"max_instruments" validate:"gte=0"`
	} `yaml:"scan"`
	Report struct {
		Cron string `yaml:"cron"`
	} `yaml:"report"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills in defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Telegram.Enabled = true
	cfg.News.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("NEWSAPI_KEYS"); v != "" {
		cfg.News.APIKeys = splitList(v)
	}
	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SCAN_INTERVAL: %w", err)
		}
		cfg.Scan.Interval = d
	}
	if v := os.Getenv("SCAN_TIMEFRAMES"); v != "" {
		cfg.Scan.Timeframes = splitList(v)
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SCAN_WORKERS: %w", err)
		}
		cfg.Scan.Workers = n
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Exchange.QuoteAsset == "" {
		cfg.Exchange.QuoteAsset = "USDT"
	}
	if cfg.Exchange.CandleLimit == 0 {
		cfg.Exchange.CandleLimit = 250
	}
	if cfg.Exchange.RequestsPerSecond == 0 {
		cfg.Exchange.RequestsPerSecond = 10
	}
	if cfg.Exchange.Burst == 0 {
		cfg.Exchange.Burst = 5
	}
	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://newsapi.org"
	}
	if cfg.News.Language == "" {
		cfg.News.Language = "en"
	}
	if cfg.News.RequestsPerSecond == 0 {
		cfg.News.RequestsPerSecond = 1
	}
	if cfg.Scan.Interval == 0 {
		cfg.Scan.Interval = 60 * time.Second
	}
	if len(cfg.Scan.Timeframes) == 0 {
		cfg.Scan.Timeframes = []string{"1m", "5m", "15m"}
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 1
	}
	if cfg.Scan.RequestTimeout == 0 {
		cfg.Scan.RequestTimeout = 10 * time.Second
	}
	if cfg.Scan.ErrorBudget == 0 {
		cfg.Scan.ErrorBudget = 20
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trendscout.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks field rules and the report cron expression.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.News.Enabled && len(c.News.APIKeys) == 0 {
		return fmt.Errorf("news.api_keys is required when news is enabled")
	}
	if c.Report.Cron != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Report.Cron); err != nil {
			return fmt.Errorf("report.cron: %w", err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
