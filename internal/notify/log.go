package notify

import (
	"context"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
)

// LogNotifier writes messages to the log instead of a chat.
type LogNotifier struct{}

var _ interfaces.Notifier = LogNotifier{}

func (LogNotifier) Send(ctx context.Context, text string) error {
	logger.Info(ctx, "Notification", "channel", "log", "text", text)
	return nil
}
