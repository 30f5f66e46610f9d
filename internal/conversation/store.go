package conversation

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = 24 * time.Hour

// Store keeps one Session per user. Load returns a copy; changes are only
// visible after Save.
type Store interface {
	Load(ctx context.Context, userID int64) (*Session, bool, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

type memoryEntry struct {
	session  *Session
	lastSeen time.Time
}

// MemoryStore is the in-process Store. Idle sessions expire after the TTL
// and are removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.lastSeen) > m.ttl {
		delete(m.sessions, userID)
		return nil, false, nil
	}
	return e.session.clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = memoryEntry{session: s.clone(), lastSeen: m.now()}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
