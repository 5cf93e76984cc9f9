package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TrendScout/internal/logger"
)

// botAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot    botAPI
	ChatID int64
	// MaxRetries is the number of resends after the first failed attempt.
	MaxRetries uint64
	// InitialBackoff is the first retry delay; later delays grow exponentially.
	InitialBackoff time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support. It
// verifies the token against the API before returning.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized as @%s", bot.Self.UserName)
	return newTelegramNotifier(bot, chatID), nil
}

func newTelegramNotifier(bot botAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:            bot,
		ChatID:         chatID,
		MaxRetries:     3,
		InitialBackoff: time.Second,
	}
}

// Send posts an HTML message to the configured chat, retrying transient
// failures with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.sendTo(ctx, t.ChatID, text)
}

func (t *TelegramNotifier) sendTo(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	attempt := 0
	op := func() error {
		attempt++
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && isPermanent(apiErr.Code) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("telegram send failed (attempt %d/%d): %v, retrying in %v", attempt, t.MaxRetries+1, err, wait)
	}

	if err := backoff.RetryNotify(op, t.backoff(ctx), notify); err != nil {
		return fmt.Errorf("telegram send after %d attempts: %w", attempt, err)
	}
	return nil
}

func (t *TelegramNotifier) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, t.MaxRetries), ctx)
}

// Client errors other than throttling will not succeed on retry.
func isPermanent(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
