package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"book-reader-bot/internal/domain"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.ReaderID]domain.ReaderSession
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[domain.ReaderID]domain.ReaderSession)}
}

func (m *MemoryStore) Get(_ context.Context, reader domain.ReaderID) (domain.ReaderSession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[reader]
	return s, ok, nil
}

// Put replaces the whole session. LastActive is kept when the new value has
// none, so resets do not erase activity.
func (m *MemoryStore) Put(_ context.Context, session domain.ReaderSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.sessions[session.ReaderID]; ok && session.LastActive.IsZero() {
		session.LastActive = prev.LastActive
	}
	m.sessions[session.ReaderID] = session
	return nil
}

func (m *MemoryStore) UpdateOffset(_ context.Context, reader domain.ReaderID, offset int64) error {
	return m.update(reader, func(s *domain.ReaderSession) { s.Offset = offset })
}

func (m *MemoryStore) SetAwaitingWord(_ context.Context, reader domain.ReaderID, awaiting bool) error {
	return m.update(reader, func(s *domain.ReaderSession) { s.AwaitingWord = awaiting })
}

// Touch records activity, creating an empty session on first contact.
func (m *MemoryStore) Touch(_ context.Context, reader domain.ReaderID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[reader]
	if !ok {
		s = domain.NewSession(reader)
	}
	s.LastActive = at
	m.sessions[reader] = s
	return nil
}

// List returns a snapshot of all sessions ordered by reader.
func (m *MemoryStore) List(_ context.Context) ([]domain.ReaderSession, error) {
	m.mu.RLock()
	out := make([]domain.ReaderSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ReaderID < out[j].ReaderID })
	return out, nil
}

func (m *MemoryStore) update(reader domain.ReaderID, fn func(*domain.ReaderSession)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[reader]
	if !ok {
		return domain.ErrSessionNotFound
	}
	fn(&s)
	m.sessions[reader] = s
	return nil
}
