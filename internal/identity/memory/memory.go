package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BitsOfPraneet/The-Gates/internal/identity"
)

type account struct {
	id           string
	email        string
	displayName  string
	passwordHash string
	createdAt    time.Time
}

type resetToken struct {
	email     string
	expiresAt time.Time
	used      bool
}

// Service is an in-memory identity service for local runs and tests.
type Service struct {
	mu       sync.Mutex
	mailer   identity.Mailer
	baseURL  string
	tokenTTL time.Duration

	accounts map[string]*account // keyed by lowercased email
	tokens   map[string]*resetToken
}

func NewService(mailer identity.Mailer, baseURL string, tokenTTL time.Duration) *Service {
	return &Service{
		mailer:   mailer,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
		accounts: make(map[string]*account),
		tokens:   make(map[string]*resetToken),
	}
}

func (s *Service) CreateAccount(
	ctx context.Context,
	email string,
	password string,
	displayName string,
) (*identity.Account, error) {

	hash, _, err := identity.HashPassword(password)
	if err != nil {
		var ie *identity.Error
		if errors.As(err, &ie) {
			return nil, ie
		}
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		return nil, identity.NewError(identity.ReasonEmailClaimed, nil)
	}

	acc := &account{
		id:           uuid.NewString(),
		email:        email,
		displayName:  displayName,
		passwordHash: hash,
		createdAt:    time.Now(),
	}
	s.accounts[key] = acc

	return toAccount(acc), nil
}

func (s *Service) VerifyCredentials(
	ctx context.Context,
	email string,
	password string,
) (*identity.Account, error) {

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(email)]
	s.mu.Unlock()

	if !ok {
		return nil, identity.NewError(identity.ReasonUnknownAccount, nil)
	}

	if err := identity.VerifyPassword(acc.passwordHash, password); err != nil {
		return nil, identity.NewError(identity.ReasonWrongCredential, nil)
	}

	return toAccount(acc), nil
}

func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	s.mu.Lock()
	_, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		s.mu.Unlock()
		return identity.NewError(identity.ReasonUnknownAccount, nil)
	}

	token := uuid.NewString()
	s.tokens[token] = &resetToken{
		email:     strings.ToLower(email),
		expiresAt: time.Now().Add(s.tokenTTL),
	}
	s.mu.Unlock()

	resetURL := fmt.Sprintf("%s/auth/reset/confirm?token=%s", s.baseURL, token)
	if err := s.mailer.SendPasswordReset(ctx, email, resetURL); err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	hash, _, err := identity.HashPassword(newPassword)
	if err != nil {
		var ie *identity.Error
		if errors.As(err, &ie) {
			return ie
		}
		return identity.NewError(identity.ReasonInternal, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok || t.used || time.Now().After(t.expiresAt) {
		return identity.NewError(identity.ReasonInternal, errors.New("reset token invalid or expired"))
	}

	acc, ok := s.accounts[t.email]
	if !ok {
		return identity.NewError(identity.ReasonUnknownAccount, nil)
	}

	acc.passwordHash = hash
	t.used = true
	return nil
}

func toAccount(a *account) *identity.Account {
	return &identity.Account{
		ID:          a.id,
		Email:       a.email,
		DisplayName: a.displayName,
		CreatedAt:   a.createdAt,
	}
}
