package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
)

// messageSender is the part of *bot.Bot used here.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgModels.Message, error)
}

// Telegram posts alerts to a single chat.
type Telegram struct {
	sender messageSender
	chatID int64
	log    *zap.Logger
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram creates a Telegram notifier. Extra bot options (server URL,
// HTTP client) are passed through to bot.New.
func NewTelegram(token string, chatID int64, log *zap.Logger, opts ...bot.Option) (*Telegram, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Telegram{sender: b, chatID: chatID, log: log}, nil
}

// NotifySafe sends the alert. Delivery errors are logged.
func (t *Telegram) NotifySafe(ctx context.Context, token domain.TrendingToken) {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   FormatSafe(token),
	}
	if _, err := t.sender.SendMessage(ctx, params); err != nil {
		t.log.Error("failed to send telegram notification",
			zap.String("mint", token.Mint()),
			zap.Error(err))
	}
}
