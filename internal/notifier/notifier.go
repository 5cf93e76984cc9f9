package notifier

import (
	"context"

	"TrendScout/internal/logger"
)

// Notifier delivers a formatted message to the operator chat.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes messages to the log instead of a chat. Used for dry
// runs and when Telegram is disabled.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(_ context.Context, text string) error {
	logger.Info("notification (not sent):\n%s", text)
	return nil
}
