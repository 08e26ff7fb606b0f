// Command bookbot runs the reading bot against the Telegram long-poll API
// with the daily reminder in the same process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"book-reader-bot/internal/app"
	"book-reader-bot/internal/config"
	"book-reader-bot/internal/domain"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	a, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire application", "err", err)
		return 1
	}

	logger.Info("bot started",
		"books_dir", cfg.BooksDir,
		"chunk_size", cfg.ChunkSize,
		"reminder_at", cfg.ReminderAt.String(),
		"durable_sessions", cfg.SessionTable != "",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Telegram.Poll(gctx, func(ctx context.Context, ev domain.Event) {
			ev.CorrelationID = uuid.NewString()
			// Dispatch logs its own failures.
			_ = a.Dispatcher.Dispatch(ctx, ev)
		})
	})
	g.Go(func() error {
		return a.Reminder.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot stopped with error", "err", err)
		return 1
	}
	logger.Info("bot stopped")
	return 0
}
