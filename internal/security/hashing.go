package security

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashingFailure is returned when the underlying hash algorithm fails
// (entropy exhaustion or invalid parameters). This is the only error Hash returns.
var ErrHashingFailure = errors.New("password hashing failure")

// Hasher hashes and verifies account passwords using bcrypt. Callers must not
// log or persist plaintext passwords; the hash output is never logged either.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash of password. Each call embeds a fresh
// random salt, so two hashes of the same plaintext differ. Returns the hash
// as a string suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", errors.Join(ErrHashingFailure, err)
	}
	return string(b), nil
}

// Verify reports whether password matches the stored hash, using bcrypt's
// constant-time comparison. Malformed stored hashes verify as false and are
// recorded as a malformed-credential event; they never surface as an error.
func (h *Hasher) Verify(password []byte, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Printf("security: malformed credential hash rejected")
	}
	return false
}
