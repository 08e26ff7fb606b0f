package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"book-reader-bot/internal/document"
	"book-reader-bot/internal/domain"
)

const (
	DefaultChunkSize = 2000
	plainTextExt     = ".txt"
)

// SessionStore is the authoritative reader -> session mapping.
type SessionStore interface {
	Get(ctx context.Context, reader domain.ReaderID) (domain.ReaderSession, bool, error)
	Put(ctx context.Context, session domain.ReaderSession) error
	UpdateOffset(ctx context.Context, reader domain.ReaderID, offset int64) error
	SetAwaitingWord(ctx context.Context, reader domain.ReaderID, awaiting bool) error
	Touch(ctx context.Context, reader domain.ReaderID, at time.Time) error
	List(ctx context.Context) ([]domain.ReaderSession, error)
}

type Messenger interface {
	Send(ctx context.Context, reader domain.ReaderID, msg domain.OutboundMessage) error
}

type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type DocumentStore interface {
	Save(ctx context.Context, reader domain.ReaderID, filename string, data []byte) (string, error)
	Remove(ref string) error
}

type ChunkReader interface {
	ReadChunk(ctx context.Context, ref string, offset int64, chunkSize int) (string, int64, error)
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadingService drives the per-reader reading state machine:
// NoDocument -> DocumentLoaded -> Reading <-> AwaitingAction.
type ReadingService struct {
	store     SessionStore
	messenger Messenger
	files     Downloader
	docs      DocumentStore
	chunks    ChunkReader
	chunkSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewReadingService(store SessionStore, m Messenger, files Downloader, docs DocumentStore, chunks ChunkReader, chunkSize int, opts ...Option) (*ReadingService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if files == nil {
		return nil, errors.New("usecase: downloader must not be nil")
	}
	if docs == nil {
		return nil, errors.New("usecase: document store must not be nil")
	}
	if chunks == nil {
		return nil, errors.New("usecase: chunk reader must not be nil")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	o := buildOptions(opts)
	return &ReadingService{
		store:     store,
		messenger: m,
		files:     files,
		docs:      docs,
		chunks:    chunks,
		chunkSize: chunkSize,
		logger:    o.logger,
		now:       o.now,
	}, nil
}

// Start resets the reader's session and greets them.
func (s *ReadingService) Start(ctx context.Context, reader domain.ReaderID) error {
	if err := s.reset(ctx, reader); err != nil {
		return err
	}
	s.touch(ctx, reader)
	return s.send(ctx, reader, domain.OutboundMessage{Text: welcomeText(), Keyboard: startKeyboard()}, "send_welcome_error")
}

// Upload stores a plain-text document as the reader's current book. Other
// formats are rejected and leave the session untouched.
func (s *ReadingService) Upload(ctx context.Context, reader domain.ReaderID, up domain.Upload) error {
	if !isPlainText(up.FileName) {
		return newError(ErrorUnsupportedFormat, "not_plain_text", nil)
	}
	data, err := s.files.Download(ctx, up.FileID)
	if err != nil {
		return newError(ErrorUpstream, "download_error", err)
	}
	ref, err := s.docs.Save(ctx, reader, up.FileName, data)
	if err != nil {
		return newError(ErrorInternal, "document_save_error", err)
	}

	prev, ok, err := s.store.Get(ctx, reader)
	if err != nil {
		return newError(ErrorInternal, "session_read_error", err)
	}
	session := domain.NewSession(reader)
	session.DocumentRef = ref
	session.DocumentName = filepath.Base(up.FileName)
	if err := s.store.Put(ctx, session); err != nil {
		return newError(ErrorInternal, "session_write_error", err)
	}
	if ok && prev.DocumentRef != "" && prev.DocumentRef != ref {
		s.removeDocument(prev.DocumentRef, reader)
	}
	s.touch(ctx, reader)

	return s.send(ctx, reader, domain.OutboundMessage{
		Text:     fmt.Sprintf(textUploadAck, session.DocumentName),
		Keyboard: uploadKeyboard(),
	}, "send_upload_ack_error")
}

// BeginReading delivers the first chunk, or the next one when the reader is
// already part way through the document.
func (s *ReadingService) BeginReading(ctx context.Context, reader domain.ReaderID) error {
	return s.deliverNext(ctx, reader)
}

// ContinueReading delivers the chunk at the stored offset.
func (s *ReadingService) ContinueReading(ctx context.Context, reader domain.ReaderID) error {
	return s.deliverNext(ctx, reader)
}

// StartNewDocument clears the reader's document so a new one can be
// uploaded. Repeating it leaves the same empty session.
func (s *ReadingService) StartNewDocument(ctx context.Context, reader domain.ReaderID) error {
	if err := s.reset(ctx, reader); err != nil {
		return err
	}
	return s.send(ctx, reader, domain.OutboundMessage{Text: textNewBookReady}, "send_reset_ack_error")
}

// deliverNext sends the next chunk. The stored offset only moves after the
// chunk was sent, so a failed send re-delivers the same chunk next time.
func (s *ReadingService) deliverNext(ctx context.Context, reader domain.ReaderID) error {
	session, ok, err := s.store.Get(ctx, reader)
	if err != nil {
		return newError(ErrorInternal, "session_read_error", err)
	}
	if !ok || !session.HasDocument() {
		return newError(ErrorNoActiveDocument, "no_document", nil)
	}
	s.touch(ctx, reader)

	text, next, err := s.nextVisibleChunk(ctx, reader, session)
	switch {
	case errors.Is(err, document.ErrEndOfDocument):
		return s.finish(ctx, reader)
	case errors.Is(err, document.ErrDocumentNotFound):
		// The reference is kept; the reader has to start a new book explicitly.
		return newError(ErrorDocumentNotFound, "document_missing", err)
	case err != nil:
		return err
	}

	if err := s.send(ctx, reader, domain.OutboundMessage{Text: text}, "send_chunk_error"); err != nil {
		return err
	}
	if err := s.store.UpdateOffset(ctx, reader, next); err != nil {
		return newError(ErrorInternal, "session_offset_error", err)
	}
	return s.send(ctx, reader, domain.OutboundMessage{Text: textReadingMenu, Keyboard: readingKeyboard()}, "send_menu_error")
}

// nextVisibleChunk reads from the stored offset and steps over chunks that
// are only whitespace, since the transport rejects blank messages. Skipped
// chunks are committed to the store right away.
func (s *ReadingService) nextVisibleChunk(ctx context.Context, reader domain.ReaderID, session domain.ReaderSession) (string, int64, error) {
	offset := session.Offset
	for {
		text, next, err := s.chunks.ReadChunk(ctx, session.DocumentRef, offset, s.chunkSize)
		if errors.Is(err, document.ErrEndOfDocument) || errors.Is(err, document.ErrDocumentNotFound) {
			return "", 0, err
		}
		if err != nil {
			return "", 0, newError(ErrorInternal, "document_read_error", err)
		}
		if strings.TrimSpace(text) != "" {
			return text, next, nil
		}
		if err := s.store.UpdateOffset(ctx, reader, next); err != nil {
			return "", 0, newError(ErrorInternal, "session_offset_error", err)
		}
		offset = next
	}
}

// finish rewinds the document so it can be read again from the top.
func (s *ReadingService) finish(ctx context.Context, reader domain.ReaderID) error {
	if err := s.store.UpdateOffset(ctx, reader, 0); err != nil {
		return newError(ErrorInternal, "session_offset_error", err)
	}
	return s.send(ctx, reader, domain.OutboundMessage{Text: textFinished, Keyboard: startKeyboard()}, "send_finished_error")
}

func (s *ReadingService) reset(ctx context.Context, reader domain.ReaderID) error {
	prev, ok, err := s.store.Get(ctx, reader)
	if err != nil {
		return newError(ErrorInternal, "session_read_error", err)
	}
	if err := s.store.Put(ctx, domain.NewSession(reader)); err != nil {
		return newError(ErrorInternal, "session_write_error", err)
	}
	if ok && prev.DocumentRef != "" {
		s.removeDocument(prev.DocumentRef, reader)
	}
	return nil
}

func (s *ReadingService) removeDocument(ref string, reader domain.ReaderID) {
	if err := s.docs.Remove(ref); err != nil {
		s.logger.Warn("failed to remove previous document", "reader", reader, "err", err)
	}
}

func (s *ReadingService) touch(ctx context.Context, reader domain.ReaderID) {
	if err := s.store.Touch(ctx, reader, s.now()); err != nil {
		s.logger.Warn("failed to record reader activity", "reader", reader, "err", err)
	}
}

func (s *ReadingService) send(ctx context.Context, reader domain.ReaderID, msg domain.OutboundMessage, reason string) error {
	if err := s.messenger.Send(ctx, reader, msg); err != nil {
		return newError(ErrorUpstream, reason, err)
	}
	return nil
}

func isPlainText(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), plainTextExt)
}
