package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store for local runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	watchers map[string][]*memorySubscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		watchers: make(map[string][]*memorySubscription),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}
	if time.Until(s.ExpiresAt) <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.Expired(time.Now()) {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	subs := m.watchers[sessionID]
	delete(m.watchers, sessionID)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fire()
	}
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context, sessionID string) (Subscription, error) {
	sub := &memorySubscription{
		store:       m,
		sessionID:   sessionID,
		invalidated: make(chan struct{}, 1),
	}

	m.mu.Lock()
	m.watchers[sessionID] = append(m.watchers[sessionID], sub)
	m.mu.Unlock()

	return sub, nil
}

func (m *MemoryStore) removeWatcher(sessionID string, sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.watchers[sessionID]
	for i, w := range subs {
		if w == sub {
			m.watchers[sessionID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	store       *MemoryStore
	sessionID   string
	invalidated chan struct{}
	fireOnce    sync.Once
	closeOnce   sync.Once
}

func (s *memorySubscription) Invalidated() <-chan struct{} { return s.invalidated }

func (s *memorySubscription) fire() {
	s.fireOnce.Do(func() {
		s.invalidated <- struct{}{}
		close(s.invalidated)
	})
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.store.removeWatcher(s.sessionID, s)
		s.fireOnce.Do(func() {
			close(s.invalidated)
		})
	})
	return nil
}
