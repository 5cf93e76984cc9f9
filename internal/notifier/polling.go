package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TrendScout/internal/logger"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// StartPolling long-polls Telegram for commands sent from the configured chat
// and replies with the handler output. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) handleUpdate(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat.ID != t.ChatID {
		logger.Warn("ignoring command from chat %d", msg.Chat.ID)
		return
	}
	command := "/" + strings.ToLower(msg.Command())
	logger.Info("received command: %s", command)
	reply := handler(command)
	if reply == "" {
		return
	}
	if err := t.sendTo(ctx, msg.Chat.ID, reply); err != nil {
		logger.Error("send reply: %v", err)
	}
}
