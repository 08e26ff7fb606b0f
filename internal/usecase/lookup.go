package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"book-reader-bot/internal/domain"
)

// LexicalProvider returns the senses of a word, most common first.
type LexicalProvider interface {
	Senses(ctx context.Context, word string) ([]domain.Sense, error)
}

// LookupService answers word definition requests.
type LookupService struct {
	provider  LexicalProvider
	store     SessionStore
	messenger Messenger
	logger    *slog.Logger
	now       func() time.Time
}

func NewLookupService(p LexicalProvider, store SessionStore, m Messenger, opts ...Option) (*LookupService, error) {
	if p == nil {
		return nil, errors.New("usecase: lexical provider must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	o := buildOptions(opts)
	return &LookupService{provider: p, store: store, messenger: m, logger: o.logger, now: o.now}, nil
}

// Define looks up the most common sense of word. Synonyms are the sense's
// other lexical forms in provider order, without duplicates and without word
// itself.
func (s *LookupService) Define(ctx context.Context, word string) (domain.Definition, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return domain.Definition{}, newError(ErrorInvalidInput, "empty_word", nil)
	}
	senses, err := s.provider.Senses(ctx, word)
	if err != nil {
		return domain.Definition{}, newError(ErrorUpstream, "lexical_provider_error", err)
	}
	if len(senses) == 0 {
		return domain.Definition{}, newError(ErrorLookupNotFound, "no_senses", nil)
	}

	first := senses[0]
	seen := map[string]struct{}{word: {}}
	synonyms := make([]string, 0, len(first.Lemmas))
	for _, lemma := range first.Lemmas {
		if lemma == "" {
			continue
		}
		if _, dup := seen[lemma]; dup {
			continue
		}
		seen[lemma] = struct{}{}
		synonyms = append(synonyms, lemma)
	}
	return domain.Definition{Word: word, Definition: first.Definition, Synonyms: synonyms}, nil
}

// RequestDefinition asks the reader for a word and marks the session as
// waiting for it.
func (s *LookupService) RequestDefinition(ctx context.Context, reader domain.ReaderID) error {
	// Touch creates the session for readers that never pressed /start.
	if err := s.store.Touch(ctx, reader, s.now()); err != nil {
		return newError(ErrorInternal, "session_touch_error", err)
	}
	if err := s.store.SetAwaitingWord(ctx, reader, true); err != nil {
		return newError(ErrorInternal, "session_write_error", err)
	}
	if err := s.messenger.Send(ctx, reader, domain.OutboundMessage{Text: textAskWord, RemoveKeyboard: true}); err != nil {
		return newError(ErrorUpstream, "send_prompt_error", err)
	}
	return nil
}

// Answer consumes the word the reader sent after RequestDefinition.
func (s *LookupService) Answer(ctx context.Context, reader domain.ReaderID, word string) error {
	if err := s.store.SetAwaitingWord(ctx, reader, false); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Warn("failed to clear pending word request", "reader", reader, "err", err)
	}
	def, err := s.Define(ctx, word)
	if err != nil {
		if codeOf(err) == ErrorUpstream {
			// Provider outages are not user-facing errors, but the reader
			// still gets one failure message.
			notice, _ := noticeFor(ErrorLookupNotFound)
			if sendErr := s.messenger.Send(ctx, reader, notice); sendErr != nil {
				s.logger.Warn("failed to send lookup failure notice", "reader", reader, "err", sendErr)
			}
		}
		return err
	}
	if err := s.messenger.Send(ctx, reader, domain.OutboundMessage{Text: FormatDefinition(def), Keyboard: readingKeyboard()}); err != nil {
		return newError(ErrorUpstream, "send_definition_error", err)
	}
	return nil
}
