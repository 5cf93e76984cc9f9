package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "SCAN_INTERVAL", "SCAN_TIMEFRAMES", "SCAN_WORKERS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "USDT", cfg.Exchange.QuoteAsset)
	assert.Equal(t, 250, cfg.Exchange.CandleLimit)
	assert.Equal(t, 60*time.Second, cfg.Scan.Interval)
	assert.Equal(t, []string{"1m", "5m", "15m"}, cfg.Scan.Timeframes)
	assert.Equal(t, 1, cfg.Scan.Workers)
	assert.Equal(t, "https://newsapi.org", cfg.News.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: 42
exchange:
  quote_asset: USDC
scan:
  interval: 90s
  timeframes: [5m, 1h]
  workers: 4
news:
  api_keys: [k1]
report:
  cron: "0 0 * * * *"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("NEWSAPI_KEYS", "a, b,,c")
	t.Setenv("SCAN_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.EqualValues(t, 42, cfg.Telegram.ChatID)
	assert.Equal(t, "USDC", cfg.Exchange.QuoteAsset)
	assert.Equal(t, 90*time.Second, cfg.Scan.Interval)
	assert.Equal(t, []string{"5m", "1h"}, cfg.Scan.Timeframes)
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.News.APIKeys)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "scan: [unterminated"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = 1
	cfg.News.APIKeys = []string{"key"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, true},
		{"telegram disabled", func(c *Config) { c.Telegram.Enabled = false; c.Telegram.BotToken = ""; c.Telegram.ChatID = 0 }, false},
		{"missing news keys", func(c *Config) { c.News.APIKeys = nil }, true},
		{"news disabled", func(c *Config) { c.News.Enabled = false; c.News.APIKeys = nil }, false},
		{"short candle window", func(c *Config) { c.Exchange.CandleLimit = 150 }, true},
		{"unknown timeframe", func(c *Config) { c.Scan.Timeframes = []string{"7m"} }, true},
		{"sub-second interval", func(c *Config) { c.Scan.Interval = 10 * time.Millisecond }, true},
		{"bad cron", func(c *Config) { c.Report.Cron = "every tuesday" }, true},
		{"cron with seconds", func(c *Config) { c.Report.Cron = "0 30 8 * * *" }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_EmptyKeyList(t *testing.T) {
	cfg := validConfig(t)
	cfg.News.APIKeys = []string{}
	assert.Error(t, cfg.Validate())
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0 0 */6 * * *", cfg.Report.Cron)
	assert.Equal(t, 10*time.Second, cfg.Scan.RequestTimeout)

	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = 1
	cfg.News.APIKeys = []string{"key"}
	assert.NoError(t, cfg.Validate())
}
