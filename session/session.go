// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/whosaidit/network"
)

var ErrNotConnected = errors.New("session has no connection")

// Session is a live connection handle together with the player record bound
// to it. Name and RoomID are empty until the connection joins a room.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	name   string
	roomID string
	score  int
	mutex  sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) Score() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.score
}

// AddScore adds delta and returns the new total.
func (s *Session) AddScore(delta int) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.score += delta
	return s.score
}

// Detach clears the player record; the connection itself is kept.
func (s *Session) Detach() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = ""
	s.roomID = ""
	s.score = 0
}

// ClearRoom unbinds the room but keeps name and score, for room switches.
func (s *Session) ClearRoom() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = ""
}

func (s *Session) bind(name, roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = name
	s.roomID = roomID
}

// Touch records inbound activity such as a heartbeat.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActive = time.Now()
}

func (s *Session) Send(event string, data []byte) error {
	if s.Conn == nil {
		return ErrNotConnected
	}
	s.Touch()
	return s.Conn.Send(event, data)
}

func (s *Session) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}

// Manager is the player registry: connection id -> Session.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Add tracks a freshly accepted connection that has not joined yet.
func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Register binds a name and room to id. Re-registering an existing id updates
// it in place, keeping its connection and score.
func (m *Manager) Register(id, name, roomID string) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = NewSession(id, nil)
		m.sessions[id] = s
	}
	s.bind(name, roomID)
	return s
}

func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[id]
	return session, exists
}

// Remove drops id and returns the record it held, if any.
func (m *Manager) Remove(id string) (*Session, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	return session, exists
}

// InRoom returns every session currently bound to roomID.
func (m *Manager) InRoom(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomID() == roomID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
