package firestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BitsOfPraneet/The-Gates/internal/profile"
)

// Store keeps profile documents in a Firestore "users" collection, matching
// the document layout of the original web client. Watch rides on Firestore's
// native snapshot listener.
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for the firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) userDoc(accountID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(accountID)
}

type userDoc struct {
	UID            string    `firestore:"uid"`
	Username       string    `firestore:"username"`
	Email          string    `firestore:"email"`
	Bio            string    `firestore:"bio"`
	ProfilePicture string    `firestore:"profilePicture"`
	Age            string    `firestore:"age"`
	Phone          string    `firestore:"phone"`
	DateOfBirth    string    `firestore:"dateOfBirth"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func toDoc(p profile.Profile) userDoc {
	return userDoc{
		UID:            p.AccountID,
		Username:       p.DisplayName,
		Email:          p.Email,
		Bio:            p.Bio,
		ProfilePicture: p.Avatar,
		Age:            p.Age,
		Phone:          p.Phone,
		DateOfBirth:    p.DateOfBirth,
		CreatedAt:      p.CreatedAt,
	}
}

func fromDoc(d userDoc) profile.Profile {
	return profile.Profile{
		AccountID:   d.UID,
		DisplayName: d.Username,
		Email:       d.Email,
		Bio:         d.Bio,
		Avatar:      d.ProfilePicture,
		Age:         d.Age,
		Phone:       d.Phone,
		DateOfBirth: d.DateOfBirth,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *Store) Create(ctx context.Context, p profile.Profile) error {
	_, err := s.userDoc(p.AccountID).Create(ctx, toDoc(p))
	if err != nil {
		return fmt.Errorf("firestore create profile: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	snap, err := s.userDoc(accountID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("firestore get profile: %w", err)
	}

	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("firestore decode profile: %w", err)
	}

	p := fromDoc(d)
	return &p, nil
}

func (s *Store) Update(ctx context.Context, accountID string, u profile.Update) error {
	if u.IsZero() {
		return nil
	}

	var updates []firestore.Update

	add := func(path string, val *string) {
		if val == nil {
			return
		}
		updates = append(updates, firestore.Update{Path: path, Value: *val})
	}

	add("username", u.DisplayName)
	add("bio", u.Bio)
	add("profilePicture", u.Avatar)
	add("age", u.Age)
	add("phone", u.Phone)
	add("dateOfBirth", u.DateOfBirth)

	_, err := s.userDoc(accountID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return profile.ErrNotFound
		}
		return fmt.Errorf("firestore update profile: %w", err)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context, accountID string) (profile.Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	sub := &subscription{
		snaps:   s.userDoc(accountID).Snapshots(watchCtx),
		cancel:  cancel,
		updates: make(chan profile.Profile),
	}

	go sub.run(watchCtx)
	return sub, nil
}

type subscription struct {
	snaps     *firestore.DocumentSnapshotIterator
	cancel    context.CancelFunc
	updates   chan profile.Profile
	closeOnce sync.Once
}

func (s *subscription) Updates() <-chan profile.Profile { return s.updates }

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.snaps.Stop()
		s.cancel()
	})
	return nil
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.updates)

	for {
		snap, err := s.snaps.Next()
		if err == iterator.Done {
			return
		}
		if err != nil {
			// Snapshot iterators fail terminally; surface by ending the stream.
			return
		}
		if !snap.Exists() {
			continue
		}

		var d userDoc
		if err := snap.DataTo(&d); err != nil {
			continue
		}

		select {
		case s.updates <- fromDoc(d):
		case <-ctx.Done():
			return
		}
	}
}
