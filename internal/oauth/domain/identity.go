package domain

import identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"

// Identity is the normalized projection of a third-party OAuth identity.
// It is transient: the resolver produces it per request and the orchestrator
// maps it to a stable account identity.
type Identity struct {
	Provider      identitydomain.Provider
	SubjectID     string
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	PictureURL    string
}
