package session

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps sessions in process memory. Suitable for single-instance
// deployments and tests; sessions do not survive a restart.
type MemoryStore struct {
	clock clockwork.Clock

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) Create(_ context.Context, s Session) error {
	if s.ID == "" || s.UserID == "" {
		return errMissingIDs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !m.clock.Now().Before(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Update(_ context.Context, s Session) error {
	if s.ID == "" {
		return errMissingIDs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
