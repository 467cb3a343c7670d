package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const invalidationPrefix = "session:gone:"

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(s.SessionID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return err
	}

	// Best effort: watchers fall back to expiry checks if this is lost.
	_ = r.client.Publish(ctx, invalidationPrefix+sessionID, "1").Err()
	return nil
}

func (r *RedisStore) Watch(ctx context.Context, sessionID string) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, invalidationPrefix+sessionID)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("session: subscribe: %w", err)
	}

	sub := &redisSubscription{
		pubsub:      pubsub,
		invalidated: make(chan struct{}),
	}

	go sub.run(ctx)
	return sub, nil
}

type redisSubscription struct {
	pubsub      *redis.PubSub
	invalidated chan struct{}
	closeOnce   sync.Once
}

func (s *redisSubscription) Invalidated() <-chan struct{} { return s.invalidated }

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
	})
	return nil
}

func (s *redisSubscription) run(ctx context.Context) {
	defer close(s.invalidated)

	ch := s.pubsub.Channel()
	select {
	case _, ok := <-ch:
		if !ok {
			return
		}
		select {
		case s.invalidated <- struct{}{}:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
	s.Close()
}
