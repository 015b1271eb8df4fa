package domain

import "time"

// Record is one consumed nonce for a signing key. For a given key fingerprint
// a nonce value is accepted at most once.
type Record struct {
	// KeyFingerprint is the hex SHA-256 of the signing public key.
	KeyFingerprint string
	Nonce          string
	FirstSeen      time.Time
}
