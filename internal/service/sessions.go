package service

import (
	"sync"
	"time"
)

// SessionStore maps bearer tokens to user ids.
type SessionStore interface {
	Create(token, userID string)
	Lookup(token string) (string, bool)
	Delete(token string)
}

type session struct {
	userID  string
	created time.Time
}

// MemorySessions keeps sessions in process. With a zero ttl a session lives
// until logout; otherwise it is dropped on the first lookup past its ttl.
type MemorySessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]session
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{ttl: ttl, now: time.Now, sessions: map[string]session{}}
}

func (m *MemorySessions) Create(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = session{userID: userID, created: m.now()}
}

func (m *MemorySessions) Lookup(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return "", false
	}
	if m.ttl > 0 && m.now().Sub(s.created) > m.ttl {
		delete(m.sessions, token)
		return "", false
	}
	return s.userID, true
}

func (m *MemorySessions) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
