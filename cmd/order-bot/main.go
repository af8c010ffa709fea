package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/config"
	"github.com/vasiliy-maslov/table-order-bot/internal/db"
	"github.com/vasiliy-maslov/table-order-bot/internal/handler"
	"github.com/vasiliy-maslov/table-order-bot/internal/notify"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
	"github.com/vasiliy-maslov/table-order-bot/internal/session"
	"github.com/vasiliy-maslov/table-order-bot/internal/telegram"
	"github.com/vasiliy-maslov/table-order-bot/internal/transport"
)

func main() {
	configPath := flag.String("config", ".env", "path to an optional .env file")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-bot").Logger()

	log.Info().Msg("Order bot starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	api, err := telegram.NewAPI(&cfg.Telegram)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start Telegram client")
	}

	var notifier order.Notifier = notify.Nop{}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := notify.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer publisher.Close()
		notifier = publisher
	} else {
		log.Warn().Msg("RABBITMQ_URL is empty, order notifications are disabled")
	}

	catalogRepo := catalog.NewRepository(pg.Pool)
	qrcodeSvc := qrcode.NewService(qrcode.NewRepository(pg.Pool), qrcode.NewPNGRenderer(), qrcode.Options{
		BotUsername: cfg.Telegram.BotUsername,
		Dir:         cfg.QRCode.Dir,
	})
	orderSvc := order.NewService(order.NewRepository(pg.Pool), notifier)

	store := session.NewStore()
	go store.RunJanitor(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)

	messenger := telegram.NewMessenger(api)
	machine := session.NewMachine(store, catalogRepo, qrcodeSvc, orderSvc, messenger)
	bot := telegram.NewBot(api, machine, messenger)

	router := transport.NewRouter(
		handler.NewQRCodeHandler(qrcodeSvc, cfg.App.PublicBaseURL),
		handler.NewOrderHandler(orderSvc),
		cfg.QRCode.Dir,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := bot.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Bot stopped with error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Bot did not finish in-flight updates in time")
	}
	log.Info().Int("sessions_dropped", store.Len()).Msg("Order bot stopped")
}
