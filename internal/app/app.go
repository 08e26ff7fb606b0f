// Package app wires the bot's components from a Config. Both entry points
// share it so the poll loop and the Lambda build identical services.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"book-reader-bot/internal/config"
	"book-reader-bot/internal/document"
	"book-reader-bot/internal/integrations/dictionary"
	"book-reader-bot/internal/integrations/paramstore"
	"book-reader-bot/internal/integrations/telegram"
	"book-reader-bot/internal/repository"
	"book-reader-bot/internal/scheduler"
	"book-reader-bot/internal/usecase"
)

type sessionStore interface {
	usecase.SessionStore
	scheduler.SessionLister
}

// App holds the wired services.
type App struct {
	Telegram   *telegram.Client
	Dispatcher *usecase.Dispatcher
	Reminder   *scheduler.Reminder
}

// Wire builds an App. AWS config is loaded only when a DynamoDB table or an
// SSM token parameter is configured.
func Wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var awsCfg aws.Config
	if cfg.UsesAWS() {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
	}

	token := cfg.TelegramToken
	if token == "" {
		ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("create SSM client: %w", err)
		}
		if token, err = ps.Token(ctx, cfg.TokenParam); err != nil {
			return nil, fmt.Errorf("resolve telegram token: %w", err)
		}
	}

	store, err := newStore(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	tgOpts := []telegram.Option{
		telegram.WithPollTimeout(cfg.PollTimeout),
		telegram.WithLogger(logger),
	}
	if cfg.TelegramAPIURL != "" {
		tgOpts = append(tgOpts, telegram.WithBaseURL(cfg.TelegramAPIURL))
	}
	tg, err := telegram.NewClient(token, tgOpts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	files, err := document.NewFileStore(cfg.BooksDir)
	if err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}
	chunker, err := document.NewChunker(files)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	var dictOpts []dictionary.Option
	if cfg.DictionaryURL != "" {
		dictOpts = append(dictOpts, dictionary.WithBaseURL(cfg.DictionaryURL))
	}
	dict := dictionary.NewClient(dictOpts...)

	reading, err := usecase.NewReadingService(store, tg, tg, files, chunker, cfg.ChunkSize, usecase.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create reading service: %w", err)
	}
	lookup, err := usecase.NewLookupService(dict, store, tg, usecase.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create lookup service: %w", err)
	}
	dispatcher, err := usecase.NewDispatcher(reading, lookup, store, tg, usecase.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	reminder, err := scheduler.NewReminder(store, tg, cfg.ReminderAt,
		scheduler.WithLocation(cfg.ReminderLocation),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	return &App{Telegram: tg, Dispatcher: dispatcher, Reminder: reminder}, nil
}

func newStore(cfg config.Config, awsCfg aws.Config) (sessionStore, error) {
	if cfg.SessionTable == "" {
		return repository.NewMemoryStore(), nil
	}
	client, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.SessionTable)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	return client, nil
}
