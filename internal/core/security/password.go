// Package security holds the credential primitives used by the auth service:
// password hashing and signed session tokens.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// DefaultCost is the bcrypt work factor used outside of tests.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected, not truncated.
const MaxPasswordBytes = 72

// PasswordHasher derives and checks salted password hashes.
type PasswordHasher interface {
	// Hash returns a salted hash of password.
	Hash(password string) (string, error)
	// Verify returns (true, nil) on match, (false, nil) on mismatch and an error
	// only when the stored hash itself is unusable.
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost, falling back to
// DefaultCost when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", domain.NewValidationError("password", "password is required")
	}
	if len(password) > MaxPasswordBytes {
		return "", domain.NewValidationError("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify treats passwords longer than MaxPasswordBytes as a mismatch, since
// bcrypt would only compare their first MaxPasswordBytes bytes.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
