package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"book-reader-bot/handler"
	"book-reader-bot/internal/app"
	"book-reader-bot/internal/config"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadLambda(os.Getenv)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	a, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire application", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(a.Dispatcher, a.Reminder, cfg.WebhookSecret, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
