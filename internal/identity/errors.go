package identity

import (
	"errors"
	"fmt"
)

// Reason is a stable failure code surfaced by the identity service.
// Handlers map reasons to user-facing text; reasons themselves never change.
type Reason string

const (
	ReasonUnknownAccount  Reason = "unknown-account"
	ReasonWrongCredential Reason = "wrong-credential"
	ReasonEmailClaimed    Reason = "email-already-claimed"
	ReasonWeakPassword    Reason = "weak-password"
	ReasonMalformedEmail  Reason = "malformed-email"
	ReasonInternal        Reason = "internal"
)

// Error is a remote rejection from the identity service. The wrapped error,
// when present, carries the raw cause for logs; callers branch on Reason.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("identity: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps cause with a stable reason code.
func NewError(reason Reason, cause error) *Error {
	return &Error{Reason: reason, Err: cause}
}

// ReasonOf extracts the reason code from err, or ReasonInternal when err is
// not an identity error.
func ReasonOf(err error) Reason {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ReasonInternal
}
