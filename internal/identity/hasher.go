package identity

import "golang.org/x/crypto/bcrypt"

const (
	HashVersionBcrypt = "bcrypt"

	// MinPasswordLen matches the registration rule enforced upstream.
	MinPasswordLen = 6
)

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (hash string, version string, err error) {
	if len(password) < MinPasswordLen {
		return "", "", NewError(ReasonWeakPassword, nil)
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", "", err
	}

	return string(bytes), HashVersionBcrypt, nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}
