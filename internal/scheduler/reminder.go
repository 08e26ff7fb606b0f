// Package scheduler runs the daily reading reminder beside request handling.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"book-reader-bot/internal/domain"
)

// DefaultText is the reminder sent to readers who have not read today.
const DefaultText = "Экологичное напоминание продолжить читать книгу:)"

// SessionLister returns a snapshot of all reader sessions.
type SessionLister interface {
	List(ctx context.Context) ([]domain.ReaderSession, error)
}

type Messenger interface {
	Send(ctx context.Context, reader domain.ReaderID, msg domain.OutboundMessage) error
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("scheduler: time of day %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("scheduler: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("scheduler: invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Report summarises one reminder run.
type Report struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Reminder fires once a day at a fixed wall-clock time and nudges every
// reader with a loaded book who has not been active that day.
type Reminder struct {
	sessions  SessionLister
	messenger Messenger
	at        TimeOfDay
	loc       *time.Location
	text      string
	logger    *slog.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

type Option func(*Reminder)

func WithLocation(loc *time.Location) Option {
	return func(r *Reminder) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithText(text string) Option {
	return func(r *Reminder) {
		if strings.TrimSpace(text) != "" {
			r.text = text
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reminder) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reminder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReminder creates a Reminder firing daily at at.
func NewReminder(sessions SessionLister, m Messenger, at TimeOfDay, opts ...Option) (*Reminder, error) {
	if sessions == nil {
		return nil, errors.New("scheduler: session lister must not be nil")
	}
	if m == nil {
		return nil, errors.New("scheduler: messenger must not be nil")
	}
	if at.Hour < 0 || at.Hour > 23 || at.Minute < 0 || at.Minute > 59 {
		return nil, fmt.Errorf("scheduler: invalid trigger time %s", at)
	}
	r := &Reminder{
		sessions:  sessions,
		messenger: m,
		at:        at,
		loc:       time.Local,
		text:      DefaultText,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NextTrigger returns the first trigger time strictly after now.
func (r *Reminder) NextTrigger(now time.Time) time.Time {
	local := now.In(r.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), r.at.Hour, r.at.Minute, 0, 0, r.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, r.at.Hour, r.at.Minute, 0, 0, r.loc)
	}
	return next
}

// Run waits for each trigger time and starts a reminder run in its own
// goroutine, so a slow run never delays the next trigger. It returns when
// ctx is cancelled, after in-flight runs have finished.
func (r *Reminder) Run(ctx context.Context) error {
	r.logger.Info("reminder scheduler started", "at", r.at.String(), "location", r.loc.String())
	defer r.wg.Wait()

	// Each trigger is derived from the previous one, not from the clock, so
	// a timer firing slightly ahead of wall time cannot repeat a trigger.
	next := r.NextTrigger(r.now())
	for {
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("reminder scheduler stopped")
			return nil
		case <-timer.C:
		}

		r.wg.Add(1)
		go func(firedAt time.Time) {
			defer r.wg.Done()
			if _, err := r.RunOnce(ctx, firedAt); err != nil {
				r.logger.Error("reminder run failed", "err", err)
			}
		}(next)
		next = r.NextTrigger(next)
	}
}

// RunOnce sends the reminder to every reader with a loaded book who was not
// active on now's calendar day. Per-reader send failures are logged and
// counted; only a failure to list sessions is returned.
func (r *Reminder) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	var rep Report
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("scheduler: list sessions: %w", err)
	}

	day := now.In(r.loc)
	for _, s := range sessions {
		if !s.HasDocument() || s.ActiveOn(day) {
			rep.Skipped++
			continue
		}
		if err := r.messenger.Send(ctx, s.ReaderID, domain.OutboundMessage{Text: r.text}); err != nil {
			rep.Failed++
			r.logger.Warn("failed to send reminder", "reader", s.ReaderID, "err", err)
			continue
		}
		rep.Sent++
	}
	r.logger.Info("reminder run finished", "sent", rep.Sent, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}
