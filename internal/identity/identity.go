package identity

import (
	"context"
	"log/slog"
	"time"
)

// Account represents a registered account as known to the identity service.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Service verifies credentials and manages account lifecycle. It returns
// identity facts only; sessions and profile documents live elsewhere.
type Service interface {
	// CreateAccount registers a new account with the given credentials and
	// display name. Fails with Error{ReasonEmailClaimed} when the email is
	// already registered.
	CreateAccount(ctx context.Context, email, password, displayName string) (*Account, error)

	// VerifyCredentials checks an email/password pair and returns the
	// matching account. Fails with Error{ReasonWrongCredential} on a bad
	// password and Error{ReasonUnknownAccount} when no account exists.
	VerifyCredentials(ctx context.Context, email, password string) (*Account, error)

	// SendPasswordReset issues a reset token for the account and dispatches
	// it out of band through the configured Mailer.
	SendPasswordReset(ctx context.Context, email string) error

	// ConfirmPasswordReset redeems a reset token and replaces the account's
	// credential. Tokens are single use and expire.
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Mailer dispatches out-of-band messages to account holders.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// LogMailer writes outbound mail to the log instead of sending it.
// Dev transport; swap for a real mailer in production wiring.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	slog.InfoContext(ctx, "password reset dispatched",
		"email", email,
		"reset_url", resetURL,
	)
	return nil
}
