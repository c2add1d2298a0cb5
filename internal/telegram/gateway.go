package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotGateway publishes request posts to channels via the request bot.
type BotGateway struct {
	api *tgbotapi.BotAPI
}

func NewBotGateway(token string) (*BotGateway, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create request bot: %w", err)
	}
	return &BotGateway{api: api}, nil
}

func claimKeyboard(payload string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚒ Взять в работу", payload),
		),
	)
}

// Send posts a message and returns its Telegram message id.
func (g *BotGateway) Send(ctx context.Context, chatID int64, text, claimPayload string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if claimPayload != "" {
		msg.ReplyMarkup = claimKeyboard(claimPayload)
	}
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Edit rewrites an existing post in place, keeping its message identity.
func (g *BotGateway) Edit(ctx context.Context, chatID int64, messageID int, text, claimPayload string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if claimPayload != "" {
		keyboard := claimKeyboard(claimPayload)
		edit.ReplyMarkup = &keyboard
	}
	if _, err := g.api.Send(edit); err != nil {
		return fmt.Errorf("edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

func (g *BotGateway) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}
