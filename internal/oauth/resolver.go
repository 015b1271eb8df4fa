// Package oauth resolves third-party bearer tokens to a normalized identity
// projection. Token validation is delegated to one adapter per provider; the
// resolver itself holds no state and adds no per-provider control flow.
package oauth

import (
	"context"
	"errors"
	"fmt"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth/domain"
)

var (
	// ErrInvalidToken means the provider explicitly rejected the token. Terminal; not retryable.
	ErrInvalidToken = errors.New("oauth: invalid token")
	// ErrProviderUnavailable means the provider could not be reached or answered
	// with a server failure. Transient; the caller may retry.
	ErrProviderUnavailable = errors.New("oauth: provider unavailable")
	// ErrUnknownProvider means no validator is registered for the provider tag.
	ErrUnknownProvider = errors.New("oauth: unknown provider")
)

// Claims are the subject claims a provider validator extracts from a token.
type Claims struct {
	SubjectID     string
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	PictureURL    string
}

// Validator exchanges a provider token for subject claims. Implementations
// return ErrInvalidToken for rejected tokens and ErrProviderUnavailable for
// transport or upstream failures; any other error is treated as unavailable.
type Validator interface {
	Provider() identitydomain.Provider
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Resolver normalizes heterogeneous provider claims into the common Identity
// projection. New providers add a Validator adapter, not resolver changes.
type Resolver struct {
	validators map[identitydomain.Provider]Validator
}

// NewResolver returns a Resolver over the given validators.
func NewResolver(validators ...Validator) *Resolver {
	m := make(map[identitydomain.Provider]Validator, len(validators))
	for _, v := range validators {
		m[v.Provider()] = v
	}
	return &Resolver{validators: m}
}

// Resolve validates token with the provider's adapter and returns the
// normalized identity. Returns ErrUnknownProvider, ErrInvalidToken, or
// ErrProviderUnavailable on failure.
func (r *Resolver) Resolve(ctx context.Context, provider identitydomain.Provider, token string) (*domain.Identity, error) {
	v, ok := r.validators[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	claims, err := v.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if claims.SubjectID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{
		Provider:      provider,
		SubjectID:     claims.SubjectID,
		FirstName:     claims.FirstName,
		LastName:      claims.LastName,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		PictureURL:    claims.PictureURL,
	}, nil
}
