package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/BitsOfPraneet/The-Gates/internal/db"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
)

const channelPrefix = "profile:"

// Store keeps profile documents in postgres and fans out change
// notifications over redis pub/sub. Per-channel publish order is preserved
// by redis, which carries the per-account ordering guarantee.
type Store struct {
	db    *db.DB
	redis *redis.Client
}

func NewStore(db *db.DB, redisClient *redis.Client) *Store {
	return &Store{db: db, redis: redisClient}
}

func channel(accountID string) string {
	return channelPrefix + accountID
}

func (s *Store) Create(ctx context.Context, p profile.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles
			(user_id, display_name, email, bio, avatar, age, phone, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		p.AccountID, p.DisplayName, p.Email, p.Bio, p.Avatar,
		p.Age, p.Phone, p.DateOfBirth, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("profile: create: %w", err)
	}

	return s.publish(ctx, p.AccountID)
}

func (s *Store) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	var p profile.Profile

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, email, bio, avatar, age, phone, date_of_birth, created_at
		FROM profiles
		WHERE user_id = $1
	`, accountID).Scan(
		&p.AccountID, &p.DisplayName, &p.Email, &p.Bio, &p.Avatar,
		&p.Age, &p.Phone, &p.DateOfBirth, &p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get: %w", err)
	}

	return &p, nil
}

func (s *Store) Update(ctx context.Context, accountID string, u profile.Update) error {
	if u.IsZero() {
		return nil
	}

	set := []string{"updated_at = NOW()"}
	args := []any{}

	add := func(col string, val *string) {
		if val == nil {
			return
		}
		args = append(args, *val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	add("display_name", u.DisplayName)
	add("bio", u.Bio)
	add("avatar", u.Avatar)
	add("age", u.Age)
	add("phone", u.Phone)
	add("date_of_birth", u.DateOfBirth)

	args = append(args, accountID)
	query := fmt.Sprintf(
		"UPDATE profiles SET %s WHERE user_id = $%d",
		strings.Join(set, ", "), len(args),
	)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("profile: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return profile.ErrNotFound
	}

	return s.publish(ctx, accountID)
}

// publish re-reads the row and pushes the full document to watchers.
func (s *Store) publish(ctx context.Context, accountID string) error {
	p, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}

	if err := s.redis.Publish(ctx, channel(accountID), data).Err(); err != nil {
		return fmt.Errorf("profile: publish: %w", err)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context, accountID string) (profile.Subscription, error) {
	pubsub := s.redis.Subscribe(ctx, channel(accountID))

	// Force the SUBSCRIBE round-trip so no change published after Watch
	// returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("profile: subscribe: %w", err)
	}

	sub := &subscription{
		pubsub:  pubsub,
		updates: make(chan profile.Profile),
	}

	go sub.run(ctx)
	return sub, nil
}

type subscription struct {
	pubsub    *redis.PubSub
	updates   chan profile.Profile
	closeOnce sync.Once
}

func (s *subscription) Updates() <-chan profile.Profile { return s.updates }

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
	})
	return nil
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.updates)

	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var p profile.Profile
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				continue
			}
			select {
			case s.updates <- p:
			case <-ctx.Done():
				s.Close()
				return
			}
		case <-ctx.Done():
			s.Close()
			return
		}
	}
}
