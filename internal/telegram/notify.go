package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotNotifier messages specialists directly via the spec bot credential.
type BotNotifier struct {
	api *tgbotapi.BotAPI
}

func NewBotNotifier(token string) (*BotNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create spec bot: %w", err)
	}
	return &BotNotifier{api: api}, nil
}

func (n *BotNotifier) Notify(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("notify %d: %w", tgID, err)
	}
	return nil
}
