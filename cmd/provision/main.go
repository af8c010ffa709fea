package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/config"
	"github.com/vasiliy-maslov/table-order-bot/internal/db"
	"github.com/vasiliy-maslov/table-order-bot/internal/notify"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/provision"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
	"github.com/vasiliy-maslov/table-order-bot/internal/telegram"
)

func main() {
	var (
		configPath = flag.String("config", ".env", "path to an optional .env file")
		filePath   = flag.String("file", "provision.yaml", "restaurant setup: tables, items, employees")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "provision").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.App.LogLevel)

	file, err := provision.ParseFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read provisioning file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	// deep link нужен до первого запуска бота
	if cfg.Telegram.BotUsername == "" {
		if _, err := telegram.NewAPI(&cfg.Telegram); err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve bot username, set BOT_USERNAME")
		}
	}

	qrcodeSvc := qrcode.NewService(qrcode.NewRepository(pg.Pool), qrcode.NewPNGRenderer(), qrcode.Options{
		BotUsername: cfg.Telegram.BotUsername,
		Dir:         cfg.QRCode.Dir,
	})
	orderSvc := order.NewService(order.NewRepository(pg.Pool), notify.Nop{})
	svc := provision.NewService(provision.NewRepository(pg.Pool), qrcodeSvc, orderSvc, cfg.App.PublicBaseURL)

	report, err := svc.Apply(ctx, file)
	if err != nil {
		log.Fatal().Err(err).Msg("Provisioning failed")
	}

	if err := provision.WriteReport(os.Stdout, report); err != nil {
		log.Fatal().Err(err).Msg("Failed to print report")
	}
}
