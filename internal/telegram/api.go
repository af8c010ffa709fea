// Package telegram connects the session machine to the Telegram Bot API.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/config"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// NewAPI authorizes the bot. An empty BotUsername in cfg is filled from getMe.
func NewAPI(cfg *config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if err := tgbotapi.SetLogger(botLogger{}); err != nil {
		return nil, fmt.Errorf("telegram: failed to set logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to authorize bot: %w", err)
	}
	api.Debug = cfg.Debug

	if cfg.BotUsername == "" {
		cfg.BotUsername = api.Self.UserName
	}
	log.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram")

	return api, nil
}

// botLogger routes library output to zerolog.
type botLogger struct{}

func (botLogger) Println(v ...any) {
	log.Debug().Str("component", "tgbotapi").Msg(fmt.Sprint(v...))
}

func (botLogger) Printf(format string, v ...any) {
	log.Debug().Str("component", "tgbotapi").Msgf(format, v...)
}
