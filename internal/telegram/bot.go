package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
	"github.com/vasiliy-maslov/table-order-bot/internal/session"
)

const pollTimeout = 60

type Handler interface {
	Handle(ctx context.Context, ev session.Event) error
	Language(chatID int64) reply.Language
}

var _ Handler = (*session.Machine)(nil)

type Bot struct {
	api        API
	handler    Handler
	messenger  *Messenger
	dispatcher *dispatcher
}

func NewBot(api API, handler Handler, messenger *Messenger) *Bot {
	return &Bot{
		api:        api,
		handler:    handler,
		messenger:  messenger,
		dispatcher: newDispatcher(),
	}
}

// Run long-polls updates until ctx is done or the update channel closes.
// Turns already received are finished before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(cfg)

	log.Info().Msg("Bot is polling for updates")

	// начатые ходы доигрываются при остановке
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.dispatcher.Wait()
			log.Info().Msg("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.dispatcher.Wait()
				return nil
			}
			b.dispatch(handlerCtx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, ok := toEvent(update)
	if !ok {
		log.Debug().Int("update_id", update.UpdateID).Msg("telegram: update ignored")
		return
	}

	b.dispatcher.Dispatch(ev.Chat(), func() {
		b.process(ctx, ev)
	})
}

func (b *Bot) process(ctx context.Context, ev session.Event) {
	err := b.handler.Handle(ctx, ev)
	if err == nil {
		return
	}

	log.Error().Err(err).Int64("chat_id", ev.Chat()).Msgf("telegram: failed to handle %T", ev)

	screen := reply.InternalError(b.handler.Language(ev.Chat()))
	if _, err := b.messenger.Send(ctx, ev.Chat(), screen); err != nil {
		log.Error().Err(err).Int64("chat_id", ev.Chat()).Msg("telegram: failed to report error to user")
	}
}

// toEvent reports false for updates the bot does not react to.
func toEvent(update tgbotapi.Update) (session.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return nil, false
		}
		return session.Callback{
			ChatID:    cq.Message.Chat.ID,
			QueryID:   cq.ID,
			MessageID: cq.Message.MessageID,
			Data:      cq.Data,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}

	if msg.IsCommand() {
		return session.Command{
			ChatID: msg.Chat.ID,
			Name:   msg.Command(),
			Args:   msg.CommandArguments(),
		}, true
	}

	if msg.Text == "" {
		return nil, false
	}
	return session.Text{ChatID: msg.Chat.ID, Text: msg.Text}, true
}
