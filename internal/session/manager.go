package session

import (
	"sync"

	"github.com/janvolk/arkiv/internal/scanner"
)

// Manager hands out sessions and enforces that at most one session is
// active against any given backend at a time.
type Manager struct {
	mu     sync.Mutex
	active map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]*Session),
	}
}

// Begin creates a new idle session owning the backend for its lifetime.
// While the session is active, further Begin calls for the same backend
// fail with ErrBackendBusy. The backend is released when the session
// reaches a terminal state.
func (m *Manager) Begin(backend scanner.Backend, prompter Prompter) (*Session, error) {
	id := backend.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.active[id]; busy {
		return nil, scanner.ErrBackendBusy
	}

	s := newSession(backend, prompter)
	s.release = func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}
	m.active[id] = s
	return s, nil
}

// Active reports whether a session currently owns the given backend.
func (m *Manager) Active(backendID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[backendID]
	return ok
}
