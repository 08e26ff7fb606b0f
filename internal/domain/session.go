package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by session stores for partial updates
// against a reader that has no session yet.
var ErrSessionNotFound = errors.New("session not found")

// ReaderID identifies a reader. For the Telegram transport it is the private
// chat identifier, which also addresses outbound messages.
type ReaderID int64

// ReadingState is the position of a session in the reading state machine.
type ReadingState string

const (
	StateNoDocument     ReadingState = "no_document"
	StateDocumentLoaded ReadingState = "document_loaded"
	StateReading        ReadingState = "reading"
)

// ReaderSession is the per-reader reading state.
type ReaderSession struct {
	ReaderID     ReaderID
	DocumentRef  string
	DocumentName string
	// Offset is the byte position of the next unread chunk in DocumentRef.
	Offset       int64
	AwaitingWord bool
	LastActive   time.Time
}

// HasDocument reports whether a document is loaded.
func (s ReaderSession) HasDocument() bool {
	return s.DocumentRef != ""
}

// State derives the reading state from the stored fields.
func (s ReaderSession) State() ReadingState {
	switch {
	case !s.HasDocument():
		return StateNoDocument
	case s.Offset == 0:
		return StateDocumentLoaded
	default:
		return StateReading
	}
}

// ActiveOn reports whether the reader was active on the calendar day of t,
// evaluated in t's location.
func (s ReaderSession) ActiveOn(t time.Time) bool {
	if s.LastActive.IsZero() {
		return false
	}
	ly, lm, ld := s.LastActive.In(t.Location()).Date()
	y, m, d := t.Date()
	return ly == y && lm == m && ld == d
}

// NewSession returns an empty session for reader.
func NewSession(reader ReaderID) ReaderSession {
	return ReaderSession{ReaderID: reader}
}
