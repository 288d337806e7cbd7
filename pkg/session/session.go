// Package session tracks interactive sessions and the tables they loaded,
// so ad-hoc data can be cleaned up when a session ends or goes stale.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// idLength truncates the UUID so session-scoped table names stay short.
const idLength = 12

// Session is one interactive session and the tables registered under it.
type Session struct {
	ID       string
	Created  time.Time
	LastSeen time.Time
	tables   map[string]string
}

// Tables lists the session's registered tables as name→physical pairs,
// sorted by logical name.
func (s *Session) Tables() map[string]string {
	out := make(map[string]string, len(s.tables))
	for k, v := range s.tables {
		out[k] = v
	}
	return out
}

// TableNames lists the logical names of the session's tables, sorted.
func (s *Session) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manager owns every live session. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create opens a new session with a fresh identifier.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
	now := m.now()
	s := &Session{
		ID:       id,
		Created:  now,
		LastSeen: now,
		tables:   make(map[string]string),
	}
	m.sessions[id] = s
	return s
}

// Get looks a session up and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if ok {
		s.LastSeen = m.now()
	}
	return s, ok
}

// Register binds a logical table name inside a session and returns the
// physical name to create it under.
func (m *Manager) Register(id, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return "", fmt.Errorf("session %q not found", id)
	}
	physical := TableName(id, name)
	s.tables[name] = physical
	s.LastSeen = m.now()
	return physical, nil
}

// Resolve maps a logical table name to its physical name within a session.
func (m *Manager) Resolve(id, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return "", false
	}
	physical, ok := s.tables[name]
	return physical, ok
}

// Unregister removes one table binding from a session. The caller is
// responsible for dropping the physical table.
func (m *Manager) Unregister(id, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	if _, ok := s.tables[name]; !ok {
		return false
	}
	delete(s.tables, name)
	s.LastSeen = m.now()
	return true
}

// Delete removes a session and returns the physical tables it owned, so
// the caller can drop them.
func (m *Manager) Delete(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)

	physical := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		physical = append(physical, t)
	}
	sort.Strings(physical)
	return physical
}

// Expired returns the ids of sessions idle longer than ttl.
func (m *Manager) Expired(ttl time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	var ids []string
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// TableName derives the physical table name for a session-scoped table.
func TableName(sessionID, name string) string {
	return fmt.Sprintf("s_%s_%s", sessionID, name)
}
