package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/BitsOfPraneet/The-Gates/internal/db"
	"github.com/BitsOfPraneet/The-Gates/internal/identity"
)

const uniqueViolation = "23505"

// Service is the database-backed identity service.
type Service struct {
	db       *db.DB
	mailer   identity.Mailer
	baseURL  string
	tokenTTL time.Duration
}

func NewService(db *db.DB, mailer identity.Mailer, baseURL string, tokenTTL time.Duration) *Service {
	return &Service{
		db:       db,
		mailer:   mailer,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
	}
}

func (s *Service) CreateAccount(
	ctx context.Context,
	email string,
	password string,
	displayName string,
) (*identity.Account, error) {

	hash, version, err := identity.HashPassword(password)
	if err != nil {
		var ie *identity.Error
		if errors.As(err, &ie) {
			return nil, ie
		}
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	var (
		userID    uuid.UUID
		createdAt time.Time
	)

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, email, displayName).Scan(&userID, &createdAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, identity.NewError(identity.ReasonEmailClaimed, err)
		}
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)

	if err != nil {
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	return &identity.Account{
		ID:          userID.String(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   createdAt,
	}, nil
}

func (s *Service) VerifyCredentials(
	ctx context.Context,
	email string,
	password string,
) (*identity.Account, error) {

	var (
		userID       uuid.UUID
		displayName  string
		createdAt    time.Time
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.created_at, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, email).Scan(&userID, &displayName, &createdAt, &passwordHash)

	if err == sql.ErrNoRows {
		return nil, identity.NewError(identity.ReasonUnknownAccount, nil)
	}
	if err != nil {
		return nil, identity.NewError(identity.ReasonInternal, err)
	}

	if err := identity.VerifyPassword(passwordHash, password); err != nil {
		return nil, identity.NewError(identity.ReasonWrongCredential, nil)
	}

	return &identity.Account{
		ID:          userID.String(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   createdAt,
	}, nil
}

func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	var userID uuid.UUID

	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&userID)

	if err == sql.ErrNoRows {
		return identity.NewError(identity.ReasonUnknownAccount, nil)
	}
	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	token := uuid.New()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, time.Now().Add(s.tokenTTL))

	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	resetURL := fmt.Sprintf("%s/auth/reset/confirm?token=%s", s.baseURL, token)
	if err := s.mailer.SendPasswordReset(ctx, email, resetURL); err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	hash, version, err := identity.HashPassword(newPassword)
	if err != nil {
		var ie *identity.Error
		if errors.As(err, &ie) {
			return ie
		}
		return identity.NewError(identity.ReasonInternal, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}
	defer tx.Rollback()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token = $1
		  AND used_at IS NULL
		  AND expires_at > NOW()
		FOR UPDATE
	`, token).Scan(&userID)

	if err == sql.ErrNoRows {
		return identity.NewError(identity.ReasonInternal, errors.New("reset token invalid or expired"))
	}
	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE credentials
		SET password_hash = $1, hash_version = $2, updated_at = NOW()
		WHERE user_id = $3
	`, hash, version, userID)
	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE password_resets
		SET used_at = NOW()
		WHERE token = $1
	`, token)
	if err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	if err := tx.Commit(); err != nil {
		return identity.NewError(identity.ReasonInternal, err)
	}

	return nil
}
