package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"market-signal-bot/internal/interfaces"
)

// Telegram posts legacy-Markdown messages to one chat.
type Telegram struct {
	bot    *bot.Bot
	chatID string
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(token, chatID string, opts ...bot.Option) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram token and chat id are required")
	}
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
