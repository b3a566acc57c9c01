// ABOUTME: PIN hashing and verification using bcrypt
// ABOUTME: Enforces the 4-digit format before any hashing work happens

package pin

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor. It is a build-time constant rather
// than a caller-supplied parameter so it cannot be downgraded.
const Cost = 12

// ErrInvalidPIN is returned when a PIN is not exactly 4 ASCII digits.
var ErrInvalidPIN = errors.New("pin must be exactly 4 digits")

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Valid reports whether s is a well-formed 4-digit PIN.
func Valid(s string) bool {
	return pinPattern.MatchString(s)
}

// Hash hashes a 4-digit PIN with bcrypt. The format is checked before
// any cryptographic work; anything other than 4 digits fails with
// ErrInvalidPIN.
func Hash(pin string) (string, error) {
	if !pinPattern.MatchString(pin) {
		return "", ErrInvalidPIN
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), Cost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether pin matches hash. A malformed PIN or a
// non-matching hash both return false; Verify never fails on
// well-formed input that simply doesn't match.
func Verify(pin, hash string) bool {
	if !pinPattern.MatchString(pin) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
