package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Membership is the session membership index: which connections are
// subscribed to which sessions. Joins are only recorded after the access
// gate has approved them; everything downstream trusts this index.
type Membership struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[string]struct{} // session id -> connection ids
	byConn   map[string]map[uuid.UUID]struct{} // connection id -> session ids
}

func NewMembership() *Membership {
	return &Membership{
		sessions: make(map[uuid.UUID]map[string]struct{}),
		byConn:   make(map[string]map[uuid.UUID]struct{}),
	}
}

func (m *Membership) Join(sessionID uuid.UUID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[sessionID] == nil {
		m.sessions[sessionID] = make(map[string]struct{})
	}
	m.sessions[sessionID][connID] = struct{}{}
	if m.byConn[connID] == nil {
		m.byConn[connID] = make(map[uuid.UUID]struct{})
	}
	m.byConn[connID][sessionID] = struct{}{}
}

func (m *Membership) Leave(sessionID uuid.UUID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(sessionID, connID)
}

// LeaveAll removes the connection from every session it joined. Called on
// disconnect.
func (m *Membership) LeaveAll(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sessionID := range m.byConn[connID] {
		m.leaveLocked(sessionID, connID)
	}
}

func (m *Membership) leaveLocked(sessionID uuid.UUID, connID string) {
	if members, ok := m.sessions[sessionID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.sessions, sessionID)
		}
	}
	if joined, ok := m.byConn[connID]; ok {
		delete(joined, sessionID)
		if len(joined) == 0 {
			delete(m.byConn, connID)
		}
	}
}

// MembersOf returns a snapshot of the connection ids subscribed to a session.
func (m *Membership) MembersOf(sessionID uuid.UUID) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.sessions[sessionID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

func (m *Membership) IsMember(sessionID uuid.UUID, connID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID][connID]
	return ok
}
