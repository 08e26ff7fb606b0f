package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"book-reader-bot/internal/config"
	"book-reader-bot/internal/scheduler"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	at, err := scheduler.ParseTimeOfDay("20:00")
	require.NoError(t, err)
	return config.Config{
		TelegramToken:    "123:abc",
		TelegramAPIURL:   "http://127.0.0.1:1",
		PollTimeout:      time.Second,
		BooksDir:         t.TempDir(),
		ChunkSize:        2000,
		ReminderAt:       at,
		ReminderLocation: time.UTC,
		DictionaryURL:    "http://127.0.0.1:1/api/v2",
	}
}

func TestWire_InMemory(t *testing.T) {
	a, err := Wire(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	require.NotNil(t, a.Telegram)
	require.NotNil(t, a.Dispatcher)
	require.NotNil(t, a.Reminder)

	now := time.Date(2026, 3, 5, 21, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC), a.Reminder.NextTrigger(now))
}

func TestWire_BooksDirIsFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.BooksDir, "taken")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	cfg.BooksDir = path

	_, err := Wire(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewStore_DefaultsToMemory(t *testing.T) {
	cfg := testConfig(t)

	store, err := newStore(cfg, aws.Config{})
	require.NoError(t, err)

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, sessions)
}
