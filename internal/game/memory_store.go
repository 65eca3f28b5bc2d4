package game

import (
	"sync"

	"tabletop/backend/internal/models"
)

// MemoryStore is an in-memory SessionStore. It backs the turn-machine
// and gateway tests, where spinning up a database would buy nothing.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.GameSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.GameSession)}
}

// Put inserts or replaces a session.
func (m *MemoryStore) Put(session *models.GameSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
}

func (m *MemoryStore) Get(sessionID string) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MemoryStore) CommitTurnTransition(sessionID string, mutate func(*models.GameSession) error) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	// Mutate a copy so a failed transition leaves the stored row at its
	// last committed state.
	cp := *session
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	*session = cp

	out := cp
	return &out, nil
}
