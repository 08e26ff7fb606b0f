package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"book-reader-bot/internal/domain"
)

// Dispatcher routes inbound chat events to the reading and lookup services
// and turns their user-facing errors into notices.
type Dispatcher struct {
	reading   *ReadingService
	lookup    *LookupService
	store     SessionStore
	messenger Messenger
	logger    *slog.Logger
}

func NewDispatcher(reading *ReadingService, lookup *LookupService, store SessionStore, m Messenger, opts ...Option) (*Dispatcher, error) {
	if reading == nil {
		return nil, errors.New("usecase: reading service must not be nil")
	}
	if lookup == nil {
		return nil, errors.New("usecase: lookup service must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	o := buildOptions(opts)
	return &Dispatcher{reading: reading, lookup: lookup, store: store, messenger: m, logger: o.logger}, nil
}

// Dispatch handles one event. User-facing failures are reported to the
// reader and return nil; transport and internal failures are logged and
// returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	logger := d.logger.With("reader", ev.ReaderID)
	if ev.CorrelationID != "" {
		logger = logger.With("correlation_id", ev.CorrelationID)
	}

	err := d.route(ctx, ev)
	if err == nil {
		return nil
	}

	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr.UserFacing() {
		notice, _ := noticeFor(ucErr.Code)
		if sendErr := d.messenger.Send(ctx, ev.ReaderID, notice); sendErr != nil {
			logger.Error("failed to send notice", "code", ucErr.Code, "err", sendErr)
			return newError(ErrorUpstream, "send_notice_error", sendErr)
		}
		logger.Info("reader notified", "code", ucErr.Code, "reason", ucErr.Reason)
		return nil
	}
	logger.Error("event handling failed", "code", codeOf(err), "err", err)
	return err
}

func (d *Dispatcher) route(ctx context.Context, ev domain.Event) error {
	if ev.Document != nil {
		d.clearPendingWord(ctx, ev.ReaderID)
		return d.reading.Upload(ctx, ev.ReaderID, *ev.Document)
	}

	text := strings.TrimSpace(ev.Text)
	if isCommand(text, CommandStart) {
		return d.reading.Start(ctx, ev.ReaderID)
	}

	switch text {
	case LabelStartReading:
		d.clearPendingWord(ctx, ev.ReaderID)
		return d.reading.BeginReading(ctx, ev.ReaderID)
	case LabelContinueReading:
		d.clearPendingWord(ctx, ev.ReaderID)
		return d.reading.ContinueReading(ctx, ev.ReaderID)
	case LabelStartNewBook:
		return d.reading.StartNewDocument(ctx, ev.ReaderID)
	case LabelDefineWord:
		return d.lookup.RequestDefinition(ctx, ev.ReaderID)
	}

	session, ok, err := d.store.Get(ctx, ev.ReaderID)
	if err != nil {
		return newError(ErrorInternal, "session_read_error", err)
	}
	if ok && session.AwaitingWord && text != "" {
		return d.lookup.Answer(ctx, ev.ReaderID, text)
	}
	return d.send(ctx, ev.ReaderID, domain.OutboundMessage{Text: textHint}, "send_hint_error")
}

func (d *Dispatcher) send(ctx context.Context, reader domain.ReaderID, msg domain.OutboundMessage, reason string) error {
	if err := d.messenger.Send(ctx, reader, msg); err != nil {
		return newError(ErrorUpstream, reason, err)
	}
	return nil
}

// clearPendingWord drops a stale word request when the reader moves on.
func (d *Dispatcher) clearPendingWord(ctx context.Context, reader domain.ReaderID) {
	session, ok, err := d.store.Get(ctx, reader)
	if err != nil || !ok || !session.AwaitingWord {
		return
	}
	if err := d.store.SetAwaitingWord(ctx, reader, false); err != nil {
		d.logger.Warn("failed to clear pending word request", "reader", reader, "err", err)
	}
}

// isCommand matches "/cmd", "/cmd@botname" and "/cmd payload".
func isCommand(text, command string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name == command
}
