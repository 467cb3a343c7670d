package bridge

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BitsOfPraneet/The-Gates/internal/identity"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

// State is the bridge's session lifecycle state.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

const (
	DefaultBootstrapTimeout = 200 * time.Millisecond
	DefaultSessionTTL       = 24 * time.Hour
)

// Snapshot is a point-in-time view of the bridge. The profile mirror is
// eventually consistent: it reflects the last change notification delivered,
// not the last local write.
type Snapshot struct {
	State   State
	Session *session.Session
	Profile *profile.Profile
}

// Authenticated reports whether a session is active.
func (s Snapshot) Authenticated() bool { return s.State == StateAuthenticated }

// Initializing reports whether the bootstrap has not yet resolved (and the
// bounded-wait fallback has not fired).
func (s Snapshot) Initializing() bool {
	return s.State == StateUninitialized || s.State == StateInitializing
}

// Options configures a Bridge.
type Options struct {
	// BootstrapTimeout bounds how long Initialize may report the
	// initializing state. Zero means DefaultBootstrapTimeout.
	BootstrapTimeout time.Duration

	// SessionTTL is the absolute lifetime of sessions the bridge creates.
	// Zero means DefaultSessionTTL.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// Bridge owns the current-session state for one client and mediates between
// consumers and the identity/document services. It is the single writer of
// its session and profile mirror; consumers read via Snapshot and Updates.
type Bridge struct {
	identity identity.Service
	sessions session.Store
	profiles profile.Store

	bootstrapTimeout time.Duration
	sessionTTL       time.Duration
	log              *slog.Logger

	initOnce sync.Once

	mu          sync.Mutex
	state       State
	sess        *session.Session
	prof        *profile.Profile
	listening   bool // Initialize registered the session-change flow
	closed      bool
	watchCtx    context.Context
	watchCancel context.CancelFunc
	profSub     profile.Subscription
	sessSub     session.Subscription

	updates chan Snapshot
}

func New(identitySvc identity.Service, sessions session.Store, profiles profile.Store, opts Options) *Bridge {
	if opts.BootstrapTimeout <= 0 {
		opts.BootstrapTimeout = DefaultBootstrapTimeout
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Bridge{
		identity:         identitySvc,
		sessions:         sessions,
		profiles:         profiles,
		bootstrapTimeout: opts.BootstrapTimeout,
		sessionTTL:       opts.SessionTTL,
		log:              opts.Logger,
		state:            StateUninitialized,
		updates:          make(chan Snapshot, 1),
	}
}

// Initialize begins the asynchronous session bootstrap. It is idempotent;
// repeated calls are no-ops. sessionID may be empty when the client carries
// no prior session.
//
// The bridge leaves the initializing state within BootstrapTimeout even if
// the bootstrap query never resolves. The timeout races the bootstrap but
// never cancels it: a late result still lands, so the bridge may briefly
// report unauthenticated and then flip to authenticated.
func (b *Bridge) Initialize(ctx context.Context, sessionID string) {
	b.initOnce.Do(func() {
		// The bootstrap and listeners must not die with the caller's
		// deadline; they end only on Close.
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

		b.mu.Lock()
		b.state = StateInitializing
		b.listening = true
		b.watchCtx = watchCtx
		b.watchCancel = cancel
		b.mu.Unlock()
		b.notify()

		go b.bootstrap(watchCtx, sessionID)

		time.AfterFunc(b.bootstrapTimeout, func() {
			b.mu.Lock()
			fallback := b.state == StateInitializing
			if fallback {
				b.state = StateUnauthenticated
			}
			b.mu.Unlock()

			if fallback {
				b.log.Warn("session bootstrap exceeded bounded wait, reporting unauthenticated")
				b.notify()
			}
		})
	})
}

func (b *Bridge) bootstrap(ctx context.Context, sessionID string) {
	if sessionID == "" {
		b.resolveUnauthenticated()
		return
	}

	sess, err := b.sessions.Get(ctx, sessionID)
	if err != nil {
		b.log.Error("session bootstrap failed", "error", err)
		b.resolveUnauthenticated()
		return
	}
	if sess == nil || sess.Expired(time.Now()) {
		b.resolveUnauthenticated()
		return
	}

	b.adopt(sess)
}

func (b *Bridge) resolveUnauthenticated() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.state == StateInitializing || b.state == StateUninitialized {
		b.state = StateUnauthenticated
	}
	b.mu.Unlock()
	b.notify()
}

// Register creates an account, its default profile document, and a fresh
// session. Input constraints are checked before any remote call.
func (b *Bridge) Register(ctx context.Context, displayName, email, password string) (*session.Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, invalid("displayName", "display name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "email must contain @")
	}
	if len(password) < identity.MinPasswordLen {
		return nil, invalid("password", "password must be at least 6 characters")
	}

	acc, err := b.identity.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}

	err = b.profiles.Create(ctx, profile.Profile{
		AccountID:   acc.ID,
		DisplayName: displayName,
		Email:       email,
		Bio:         profile.DefaultBio,
		Avatar:      "",
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	return b.establish(ctx, acc.ID)
}

// Login verifies credentials and establishes a new session, re-pointing the
// profile mirror at the account's document.
func (b *Bridge) Login(ctx context.Context, email, password string) (*session.Session, error) {
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "email must contain @")
	}
	if password == "" {
		return nil, invalid("password", "password is required")
	}

	acc, err := b.identity.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return b.establish(ctx, acc.ID)
}

func (b *Bridge) establish(ctx context.Context, accountID string) (*session.Session, error) {
	sessionID, err := session.GenerateID()
	if err != nil {
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	now := time.Now()
	sess := &session.Session{
		SessionID: sessionID,
		UserID:    accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(b.sessionTTL),
	}

	if err := b.sessions.Create(ctx, *sess); err != nil {
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	b.adopt(sess)
	return sess, nil
}

// Resume adopts an already-verified session, e.g. one resolved by the auth
// middleware. It does not touch the session store.
func (b *Bridge) Resume(sess *session.Session) {
	if sess == nil {
		return
	}
	b.adopt(sess)
}

// adopt installs sess as the current session and, when the bridge is
// listening, re-points both subscriptions at the new identity.
func (b *Bridge) adopt(sess *session.Session) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	b.stopWatchersLocked()
	b.sess = sess
	b.prof = nil
	b.state = StateAuthenticated

	if b.listening {
		b.startWatchersLocked(sess)
	}
	b.mu.Unlock()
	b.notify()
}

// startWatchersLocked wires the profile-change and session-invalidation
// listeners for sess. Both are always torn down together so stale updates
// for a previous identity are never delivered.
func (b *Bridge) startWatchersLocked(sess *session.Session) {
	ctx := b.watchCtx

	profSub, err := b.profiles.Watch(ctx, sess.UserID)
	if err != nil {
		b.log.Error("profile watch failed", "error", err, "account_id", sess.UserID)
	} else {
		b.profSub = profSub
		go b.consumeProfile(profSub, sess.SessionID)
	}

	sessSub, err := b.sessions.Watch(ctx, sess.SessionID)
	if err != nil {
		b.log.Error("session watch failed", "error", err)
	} else {
		b.sessSub = sessSub
		go b.consumeInvalidation(sessSub, sess.SessionID)
	}

	// Prime the mirror: the watch only delivers future changes, so fetch the
	// current document once. A change racing this read simply overwrites it.
	go func() {
		p, err := b.profiles.Get(ctx, sess.UserID)
		if err != nil {
			return
		}
		b.mu.Lock()
		if b.sess != nil && b.sess.SessionID == sess.SessionID && b.prof == nil {
			b.prof = p
		}
		b.mu.Unlock()
		b.notify()
	}()
}

func (b *Bridge) consumeProfile(sub profile.Subscription, sessionID string) {
	for p := range sub.Updates() {
		p := p
		b.mu.Lock()
		if b.sess == nil || b.sess.SessionID != sessionID {
			b.mu.Unlock()
			return
		}
		b.prof = &p
		b.mu.Unlock()
		b.notify()
	}
}

func (b *Bridge) consumeInvalidation(sub session.Subscription, sessionID string) {
	_, ok := <-sub.Invalidated()
	if !ok {
		return
	}

	b.mu.Lock()
	if b.sess == nil || b.sess.SessionID != sessionID {
		b.mu.Unlock()
		return
	}
	b.stopWatchersLocked()
	b.sess = nil
	b.prof = nil
	b.state = StateUnauthenticated
	b.mu.Unlock()

	b.log.Info("session invalidated externally", "session_id", sessionID)
	b.notify()
}

func (b *Bridge) stopWatchersLocked() {
	if b.profSub != nil {
		_ = b.profSub.Close()
		b.profSub = nil
	}
	if b.sessSub != nil {
		_ = b.sessSub.Close()
		b.sessSub = nil
	}
}

// Logout invalidates the current session remotely and clears local state.
// Local state is cleared even when the remote call fails, so consumers never
// observe an authenticated bridge after a user-initiated logout.
func (b *Bridge) Logout(ctx context.Context) error {
	b.mu.Lock()
	sess := b.sess
	b.stopWatchersLocked()
	b.sess = nil
	b.prof = nil
	b.state = StateUnauthenticated
	b.mu.Unlock()
	b.notify()

	if sess == nil {
		return nil
	}

	if err := b.sessions.Delete(ctx, sess.SessionID); err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}
	return nil
}

// RequestPasswordReset asks the identity service to dispatch an out-of-band
// reset message. No local state changes.
func (b *Bridge) RequestPasswordReset(ctx context.Context, email string) error {
	if !strings.Contains(email, "@") {
		return invalid("email", "email must contain @")
	}
	return b.identity.SendPasswordReset(ctx, email)
}

// ConfirmPasswordReset redeems a reset token and installs a new password.
func (b *Bridge) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return invalid("token", "reset token is required")
	}
	if len(newPassword) < identity.MinPasswordLen {
		return invalid("password", "password must be at least 6 characters")
	}
	return b.identity.ConfirmPasswordReset(ctx, token, newPassword)
}

// UpdateProfile applies a partial update to the active account's document.
// The local mirror is refreshed only when the store's change notification
// arrives; callers must not assume read-after-write consistency.
func (b *Bridge) UpdateProfile(ctx context.Context, u profile.Update) error {
	b.mu.Lock()
	sess := b.sess
	b.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	if err := b.profiles.Update(ctx, sess.UserID, u); err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}
	return nil
}

// Snapshot returns the current state. The returned pointers are copies.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{State: b.state}
	if b.sess != nil {
		s := *b.sess
		snap.Session = &s
	}
	if b.prof != nil {
		p := *b.prof
		snap.Profile = &p
	}
	return snap
}

// Updates delivers snapshots after state changes. The channel coalesces: a
// slow consumer sees the latest snapshot, not every intermediate one.
func (b *Bridge) Updates() <-chan Snapshot {
	return b.updates
}

func (b *Bridge) notify() {
	snap := b.Snapshot()

	for {
		select {
		case b.updates <- snap:
			return
		default:
		}
		// Drop the stale snapshot and retry with the fresh one.
		select {
		case <-b.updates:
		default:
		}
	}
}

// Close tears down both listeners and stops the bootstrap's watch context.
// It is idempotent and does not touch the session store.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopWatchersLocked()
	if b.watchCancel != nil {
		b.watchCancel()
	}
	b.mu.Unlock()
	return nil
}
