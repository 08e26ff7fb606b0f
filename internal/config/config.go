// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"book-reader-bot/internal/scheduler"
)

const (
	defaultBooksDir    = "books"
	defaultChunkSize   = 2000
	defaultReminderAt  = "20:00"
	defaultPollTimeout = 30
	// Telegram caps a message at 4096 UTF-16 code units. Chunks count code
	// points and one outside the BMP takes two units.
	maxChunkSize = 2048
	// The Lambda code directory is read-only; /tmp is the writable scratch
	// space of an execution environment.
	lambdaBooksDir = "/tmp/books"
)

// Config is the full process configuration.
type Config struct {
	// Exactly one of TelegramToken and TokenParam is needed; TokenParam names
	// an SSM parameter holding the token.
	TelegramToken  string
	TokenParam     string
	TelegramAPIURL string
	WebhookSecret  string
	PollTimeout    time.Duration

	BooksDir  string
	ChunkSize int

	ReminderAt       scheduler.TimeOfDay
	ReminderLocation *time.Location

	SessionTable  string
	DictionaryURL string
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c Config) UsesAWS() bool {
	return c.SessionTable != "" || (c.TelegramToken == "" && c.TokenParam != "")
}

// Load builds a Config from getenv, normally os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken:  env("TELEGRAM_TOKEN"),
		TokenParam:     env("TOKEN_PARAM"),
		TelegramAPIURL: env("TELEGRAM_API_URL"),
		WebhookSecret:  env("WEBHOOK_SECRET"),
		BooksDir:       envOr(env, "BOOKS_DIR", defaultBooksDir),
		SessionTable:   env("SESSION_TABLE"),
		DictionaryURL:  env("DICTIONARY_URL"),
	}
	if cfg.TelegramToken == "" && cfg.TokenParam == "" {
		return Config{}, errors.New("config: TELEGRAM_TOKEN or TOKEN_PARAM must be set")
	}

	var err error
	if cfg.ChunkSize, err = envInt(env, "CHUNK_SIZE", defaultChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkSize > maxChunkSize {
		return Config{}, fmt.Errorf("config: CHUNK_SIZE must be between 1 and %d, got %d", maxChunkSize, cfg.ChunkSize)
	}

	pollSeconds, err := envInt(env, "POLL_TIMEOUT", defaultPollTimeout)
	if err != nil {
		return Config{}, err
	}
	if pollSeconds < 0 {
		return Config{}, fmt.Errorf("config: POLL_TIMEOUT must not be negative, got %d", pollSeconds)
	}
	cfg.PollTimeout = time.Duration(pollSeconds) * time.Second

	if cfg.ReminderAt, err = scheduler.ParseTimeOfDay(envOr(env, "REMINDER_AT", defaultReminderAt)); err != nil {
		return Config{}, fmt.Errorf("config: REMINDER_AT: %w", err)
	}
	cfg.ReminderLocation = time.Local
	if tz := env("REMINDER_TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("config: REMINDER_TZ: %w", err)
		}
		cfg.ReminderLocation = loc
	}
	return cfg, nil
}

// LoadLambda is Load with BOOKS_DIR defaulting to a writable path on Lambda.
func LoadLambda(getenv func(string) string) (Config, error) {
	return Load(func(key string) string {
		if key == "BOOKS_DIR" && strings.TrimSpace(getenv(key)) == "" {
			return lambdaBooksDir
		}
		return getenv(key)
	})
}

func envOr(env func(string) string, key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func envInt(env func(string) string, key string, def int) (int, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}
