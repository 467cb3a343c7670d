package identity

import (
	"errors"
	"fmt"
	"testing"
)

func TestReasonOf(t *testing.T) {
	base := NewError(ReasonWrongCredential, nil)
	if got := ReasonOf(base); got != ReasonWrongCredential {
		t.Fatalf("unexpected reason %q", got)
	}

	wrapped := fmt.Errorf("login: %w", base)
	if got := ReasonOf(wrapped); got != ReasonWrongCredential {
		t.Fatalf("unexpected reason through wrapping %q", got)
	}

	if got := ReasonOf(errors.New("plain")); got != ReasonInternal {
		t.Fatalf("expected internal for foreign errors, got %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(ReasonInternal, cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	_, _, err := HashPassword("abc")
	if ReasonOf(err) != ReasonWeakPassword {
		t.Fatalf("expected weak-password, got %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, _, err := HashPassword("abcdef")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if err := VerifyPassword(hash, "abcdef"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := VerifyPassword(hash, "wrongpass"); err == nil {
		t.Fatal("expected mismatch to fail")
	}
}
