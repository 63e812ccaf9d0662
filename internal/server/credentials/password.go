// Package credentials hashes and checks passwords and mints password reset
// tokens. It has no storage of its own.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for stored passwords.
const Cost = 10

// MinPasswordLength is the shortest accepted plaintext password.
const MinPasswordLength = 6

// MaxPasswordBytes is the most bcrypt will hash; longer input is rejected.
const MaxPasswordBytes = 72

// HashPassword returns a salted bcrypt digest of plain.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword compares plain with digest in constant time. A mismatch is
// (false, nil); only a malformed digest or similar failure yields an error.
func VerifyPassword(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
