package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. It stores identity
// pointers only, not auth state.
type Session struct {
	SessionID string    // unique session identifier
	UserID    string    // references the owning account
	CreatedAt time.Time
	ExpiresAt time.Time // absolute expiry time
}

// Expired reports whether the session is past its absolute expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store defines how sessions are stored, retrieved, and observed.
type Store interface {
	Create(ctx context.Context, s Session) error

	// Get returns the session, or (nil, nil) when it does not exist.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete invalidates the session and notifies its watchers.
	Delete(ctx context.Context, sessionID string) error

	// Watch observes one session for invalidation. The returned channel
	// receives at most one event; Close is idempotent.
	Watch(ctx context.Context, sessionID string) (Subscription, error)
}

// Subscription is a handle on a session-invalidation stream.
type Subscription interface {
	Invalidated() <-chan struct{}
	Close() error
}
