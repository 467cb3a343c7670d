package memory

import (
	"context"
	"sync"

	"github.com/BitsOfPraneet/The-Gates/internal/profile"
)

// Store is an in-memory profile store with channel-based watchers. It backs
// the "memory" backend and the bridge tests.
type Store struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	watchers map[string][]*subscription
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[string]profile.Profile),
		watchers: make(map[string][]*subscription),
	}
}

func (s *Store) Create(ctx context.Context, p profile.Profile) error {
	s.mu.Lock()
	s.profiles[p.AccountID] = p
	subs := append([]*subscription(nil), s.watchers[p.AccountID]...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.push(p)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[accountID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (s *Store) Update(ctx context.Context, accountID string, u profile.Update) error {
	s.mu.Lock()
	p, ok := s.profiles[accountID]
	if !ok {
		s.mu.Unlock()
		return profile.ErrNotFound
	}

	u.Apply(&p)
	s.profiles[accountID] = p
	subs := append([]*subscription(nil), s.watchers[accountID]...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.push(p)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context, accountID string) (profile.Subscription, error) {
	sub := &subscription{
		store:     s,
		accountID: accountID,
		updates:   make(chan profile.Profile),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.watchers[accountID] = append(s.watchers[accountID], sub)
	s.mu.Unlock()

	go sub.run(ctx)
	return sub, nil
}

func (s *Store) removeWatcher(accountID string, sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.watchers[accountID]
	for i, w := range subs {
		if w == sub {
			s.watchers[accountID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// subscription queues deliveries so a slow consumer never blocks writers
// and never reorders updates for its account.
type subscription struct {
	store     *Store
	accountID string
	updates   chan profile.Profile
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending []profile.Profile
}

func (s *subscription) Updates() <-chan profile.Profile { return s.updates }

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.store.removeWatcher(s.accountID, s)
		close(s.done)
	})
	return nil
}

func (s *subscription) push(p profile.Profile) {
	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.updates)

	for {
		s.mu.Lock()
		queue := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, p := range queue {
			select {
			case s.updates <- p:
			case <-s.done:
				return
			case <-ctx.Done():
				s.Close()
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		case <-ctx.Done():
			s.Close()
			return
		}
	}
}
