package repository

import (
	"context"

	"github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
)

// Repository defines persistence for identities, OAuth links, and signing-key bindings.
// Get methods return (nil, nil) for missing rows; errors are database failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	UpdateProfile(ctx context.Context, i *domain.Identity) error

	GetByOAuthLink(ctx context.Context, provider domain.Provider, subjectID string) (*domain.Identity, error)
	LinkOAuth(ctx context.Context, l *domain.OAuthLink) error

	GetKeyBinding(ctx context.Context, fingerprint string) (*domain.KeyBinding, error)
	BindKey(ctx context.Context, b *domain.KeyBinding) error
}
