package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type AppConfig struct {
	Port          string `validate:"required,numeric"`
	PublicBaseURL string `validate:"omitempty,url"`
	LogLevel      zerolog.Level
}

type PostgresConfig struct {
	Host            string `validate:"required"`
	Port            string `validate:"required,numeric"`
	User            string `validate:"required"`
	Password        string `validate:"required"`
	DBName          string `validate:"required"`
	SSLMode         string `validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	Schema          string `validate:"required"`
	MaxConns        int32  `validate:"gte=1"`
	MinConns        int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration
	MigrationsPath  string `validate:"required"`
}

type TelegramConfig struct {
	Token string `validate:"required"`
	// BotUsername используется в deep link QR-кода; пустое значение берётся из getMe.
	BotUsername string
	Debug       bool
}

type QRCodeConfig struct {
	Dir string `validate:"required"`
}

type RabbitMQConfig struct {
	URL      string `validate:"omitempty,url"`
	Exchange string `validate:"required"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `validate:"gt=0"`
	SweepInterval time.Duration `validate:"gt=0"`
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Telegram TelegramConfig
	QRCode   QRCodeConfig
	RabbitMQ RabbitMQConfig
	Session  SessionConfig
}

// Load reads configuration from the process environment. If path points to an
// existing .env file its values are used for keys that are not set in the
// environment.
func Load(path string) (*Config, error) {
	fileValues := map[string]string{}
	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if values != nil {
			fileValues = values
		}
	}

	env := envReader{file: fileValues}

	cfg := &Config{}
	cfg.App.Port = env.str("APP_PORT", "8080")
	cfg.App.PublicBaseURL = strings.TrimRight(env.str("PUBLIC_BASE_URL", ""), "/")
	cfg.App.LogLevel = env.level("LOG_LEVEL", zerolog.InfoLevel)

	cfg.Postgres.Host = env.str("DB_HOST", "")
	cfg.Postgres.Port = env.str("DB_PORT", "5432")
	cfg.Postgres.User = env.str("DB_USER", "")
	cfg.Postgres.Password = env.str("DB_PASSWORD", "")
	cfg.Postgres.DBName = env.str("DB_NAME", "")
	cfg.Postgres.SSLMode = env.str("DB_SSLMODE", "disable")
	cfg.Postgres.Schema = env.str("DB_SCHEMA", "table_order")
	cfg.Postgres.MaxConns = int32(env.integer("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(env.integer("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = env.duration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.Postgres.MigrationsPath = env.str("MIGRATIONS_PATH", "migrations")

	cfg.Telegram.Token = env.str("TELEGRAM_TOKEN", "")
	cfg.Telegram.BotUsername = strings.TrimPrefix(env.str("BOT_USERNAME", ""), "@")
	cfg.Telegram.Debug = env.boolean("BOT_DEBUG", false)

	cfg.QRCode.Dir = env.str("QRCODE_DIR", "web/static/qrcodes")

	cfg.RabbitMQ.URL = env.str("RABBITMQ_URL", "")
	cfg.RabbitMQ.Exchange = env.str("RABBITMQ_EXCHANGE", "orders_fanout")

	cfg.Session.IdleTimeout = env.duration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	cfg.Session.SweepInterval = env.duration("SESSION_SWEEP_INTERVAL", time.Minute)

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

type envReader struct {
	file map[string]string
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := r.file[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (r *envReader) integer(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer: %w", key, err))
		return fallback
	}
	return v
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a duration: %w", key, err))
		return fallback
	}
	return v
}

func (r *envReader) boolean(key string, fallback bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean: %w", key, err))
		return fallback
	}
	return v
}

func (r *envReader) level(key string, fallback zerolog.Level) zerolog.Level {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
