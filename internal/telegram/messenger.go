package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
	"github.com/vasiliy-maslov/table-order-bot/internal/session"
)

type Messenger struct {
	api API
}

var _ session.Messenger = (*Messenger)(nil)

func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) Send(ctx context.Context, chatID int64, screen reply.Screen) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, screen.Text)
	if screen.Keyboard != nil {
		msg.ReplyMarkup = markup(*screen.Keyboard)
	}

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: failed to send message to chat %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text of a message and drops its inline keyboard.
func (m *Messenger) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("telegram: failed to edit message %d: %w", messageID, err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram: failed to delete message %d: %w", messageID, err)
	}
	return nil
}

func (m *Messenger) AnswerCallback(ctx context.Context, queryID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		return fmt.Errorf("telegram: failed to answer callback: %w", err)
	}
	return nil
}

func markup(k reply.Keyboard) any {
	if k.Inline {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(k.Rows))
		for _, row := range k.Rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(k.Rows))
	for _, row := range k.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
		}
		rows = append(rows, buttons)
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}
