package bridge

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by session-scoped operations when no session is
// active. Callers treat it as a no-op condition, not a fatal failure.
var ErrNoSession = errors.New("bridge: no active session")

// ValidationError is a local pre-flight input failure. It is always raised
// before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bridge: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a pre-flight validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
