package domain

import "time"

// Identity is the stable account an authenticated caller resolves to. It is
// created on first successful resolution via any mechanism and mutated when a
// new credential is linked; it is never implicitly deleted.
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	// PictureURL is the avatar reference carried over from an OAuth provider, if any.
	PictureURL string
	// PasswordHash is empty when no password credential is linked.
	PasswordHash string
	// TwoFactorEnrolled requires a valid two-factor code on password login.
	TwoFactorEnrolled bool
	Admin             bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Provider tags a linked third-party OAuth provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderApple    Provider = "apple"
	ProviderFacebook Provider = "facebook"
	ProviderLinkedIn Provider = "linkedin"
)

// KnownProvider reports whether p is one of the supported provider tags.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderGoogle, ProviderApple, ProviderFacebook, ProviderLinkedIn:
		return true
	}
	return false
}

// OAuthLink binds a provider subject to an Identity.
type OAuthLink struct {
	ID         string
	IdentityID string
	Provider   Provider
	SubjectID  string
	CreatedAt  time.Time
}

// KeyBinding maps a signing public key to an Identity. A public key binds to
// at most one Identity at a time; rebinding is an administrative action.
type KeyBinding struct {
	// Fingerprint is the hex SHA-256 of the raw public key bytes; primary lookup key.
	Fingerprint string
	IdentityID  string
	// Algorithm tags how the key verifies signatures ("ed25519" or "rsa-pss-sha256").
	Algorithm string
	PublicKey []byte
	CreatedAt time.Time
}
