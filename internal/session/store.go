package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store abstracts session storage so the hosting service owns the lifecycle
// and tests can substitute fakes. The in-memory implementation below is the
// production default; a distributed cache can replace it behind the same
// interface.
type Store interface {
	// GetOrCreate returns the session for id, creating a fresh one on miss.
	GetOrCreate(id string) *Session
	// Get returns the session for id if it exists.
	Get(id string) (*Session, bool)
	// ResetFiling clears the filing state of the session, if present.
	ResetFiling(id string)
	// Delete removes the session entirely.
	Delete(id string)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

const (
	// DefaultTTL is how long an idle session survives before eviction.
	DefaultTTL = 30 * time.Minute
	// DefaultSweepInterval is how often the sweeper scans for idle sessions.
	DefaultSweepInterval = time.Minute
)

// MemoryStore keeps sessions in a mutex-guarded map with idle-TTL eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    Clock
	ttl      time.Duration
	logger   *slog.Logger
}

// NewMemoryStore creates a store with the given idle TTL. If ttl <= 0,
// DefaultTTL is used.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return NewMemoryStoreWithClock(ttl, realClock{})
}

// NewMemoryStoreWithClock creates a store with a custom clock (for testing).
func NewMemoryStoreWithClock(ttl time.Duration, clock Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		clock:    clock,
		ttl:      ttl,
		logger:   slog.Default(),
	}
}

// GetOrCreate returns the session for id, initializing a fresh one
// (Idle state, empty draft, zero counters) on miss. Creation is guarded by
// the store lock so concurrent first messages for the same id converge on
// one session.
func (m *MemoryStore) GetOrCreate(id string) *Session {
	m.mu.RLock()
	if s, ok := m.sessions[id]; ok {
		m.mu.RUnlock()
		return s
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}

	now := m.clock.Now()
	s := &Session{
		ID:         id,
		Messages:   make([]Message, 0, 16),
		Filing:     Idle,
		CreatedAt:  now,
		LastActive: now,
	}
	m.sessions[id] = s
	return s
}

// Get returns the session for id if present.
func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// ResetFiling clears the draft and filing state for id, if present.
func (m *MemoryStore) ResetFiling(id string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	s.Lock()
	s.ResetFiling()
	s.Unlock()
}

// Delete removes the session for id.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
// Sessions whose turn lock is held are skipped; they are evicted on a later
// pass once the turn finishes.
func (m *MemoryStore) Sweep() int {
	cutoff := m.clock.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.TryLock() {
			continue
		}
		idle := s.LastActive.Before(cutoff)
		s.Unlock()
		if idle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically evicts idle sessions until ctx is cancelled.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}
