package profile

import (
	"context"
	"errors"
	"time"
)

// DefaultBio is the placeholder biography given to every new profile.
const DefaultBio = "A mysterious soul wandering through the digital realm..."

var ErrNotFound = errors.New("profile: not found")

// Profile is the user-editable document keyed by account id. The account id
// is set at creation and never changes.
type Profile struct {
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Bio         string    `json:"bio"`
	Avatar      string    `json:"avatar"`
	Age         string    `json:"age,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DateOfBirth string    `json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Update is a partial profile mutation; nil fields are left untouched.
type Update struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
	Age         *string
	Phone       *string
	DateOfBirth *string
}

// IsZero reports whether the update would change nothing.
func (u Update) IsZero() bool {
	return u.DisplayName == nil && u.Bio == nil && u.Avatar == nil &&
		u.Age == nil && u.Phone == nil && u.DateOfBirth == nil
}

// Apply merges the update into p.
func (u Update) Apply(p *Profile) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
}

// Store persists profile documents and pushes change notifications.
type Store interface {
	// Create stores a brand new profile document.
	Create(ctx context.Context, p Profile) error

	// Get returns the current document, or ErrNotFound.
	Get(ctx context.Context, accountID string) (*Profile, error)

	// Update applies a partial mutation. Watchers of the account receive the
	// full post-update document.
	Update(ctx context.Context, accountID string, u Update) error

	// Watch subscribes to document changes for one account. Deliveries
	// follow the store's emission order for that account.
	Watch(ctx context.Context, accountID string) (Subscription, error)
}

// Subscription is a handle on a change stream. Closing is idempotent;
// Updates is closed once the subscription ends.
type Subscription interface {
	Updates() <-chan Profile
	Close() error
}
