package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"book-reader-bot/internal/document"
	"book-reader-bot/internal/domain"
	"book-reader-bot/internal/repository"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	reader domain.ReaderID
	msg    domain.OutboundMessage
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn func(domain.OutboundMessage) error
}

func (f *fakeMessenger) Send(_ context.Context, reader domain.ReaderID, msg domain.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(msg); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{reader: reader, msg: msg})
	return nil
}

func (f *fakeMessenger) last() domain.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return domain.OutboundMessage{}
	}
	return f.sent[len(f.sent)-1].msg
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.msg.Text)
	}
	return out
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type fakeDownloader struct {
	files map[string][]byte
	err   error
	calls int
}

func (f *fakeDownloader) Download(_ context.Context, fileID string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type fakeProvider struct {
	senses []domain.Sense
	err    error
	words  []string
}

func (f *fakeProvider) Senses(_ context.Context, word string) ([]domain.Sense, error) {
	f.words = append(f.words, word)
	return f.senses, f.err
}

type fixture struct {
	store      *repository.MemoryStore
	messenger  *fakeMessenger
	downloader *fakeDownloader
	docs       *document.FileStore
	provider   *fakeProvider
	reading    *ReadingService
	lookup     *LookupService
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, chunkSize int) *fixture {
	t.Helper()
	docs, err := document.NewFileStore(t.TempDir())
	require.NoError(t, err)
	chunker, err := document.NewChunker(docs)
	require.NoError(t, err)

	f := &fixture{
		store:      repository.NewMemoryStore(),
		messenger:  &fakeMessenger{},
		downloader: &fakeDownloader{files: map[string][]byte{}},
		docs:       docs,
		provider:   &fakeProvider{},
	}
	clock := WithClock(func() time.Time { return testNow })
	f.reading, err = NewReadingService(f.store, f.messenger, f.downloader, docs, chunker, chunkSize, clock)
	require.NoError(t, err)
	f.lookup, err = NewLookupService(f.provider, f.store, f.messenger, clock)
	require.NoError(t, err)
	f.dispatcher, err = NewDispatcher(f.reading, f.lookup, f.store, f.messenger)
	require.NoError(t, err)
	return f
}

// upload stores content as reader's current book through the service.
func (f *fixture) upload(t *testing.T, reader domain.ReaderID, content string) domain.ReaderSession {
	t.Helper()
	f.downloader.files["file-1"] = []byte(content)
	require.NoError(t, f.reading.Upload(context.Background(), reader, domain.Upload{FileName: "book.txt", FileID: "file-1"}))
	return f.session(t, reader)
}

func (f *fixture) session(t *testing.T, reader domain.ReaderID) domain.ReaderSession {
	t.Helper()
	s, ok, err := f.store.Get(context.Background(), reader)
	require.NoError(t, err)
	require.True(t, ok)
	return s
}

func expectCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, code, ucErr.Code)
}

func flatten(kb domain.Keyboard) []string {
	var out []string
	for _, row := range kb {
		out = append(out, row...)
	}
	return out
}

func cyrillic(n int) string {
	return strings.Repeat("ж", n)
}
