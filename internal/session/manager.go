package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// Manager tracks sessions by ID
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it if needed. An empty
// id gets a fresh UUID. The bool reports whether the session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, false
	}
	s = New(id)
	m.sessions[id] = s
	return s, true
}

// Get returns an existing session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[strings.TrimSpace(id)]
	return s, ok
}

// Len returns the number of tracked sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle drops sessions untouched for longer than maxAge and returns
// their IDs. A session with an analysis in flight is never dropped.
func (m *Manager) EvictIdle(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, s := range m.sessions {
		if s.Status() != models.StatusAnalyzing && s.UpdatedAt().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
