package service

import (
	"context"
	"errors"
	"testing"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/identity/repository"
	oauthdomain "github.com/projectNEWM/newm-server-sub005/internal/oauth/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
)

func newTestDirectory() *Directory {
	return NewDirectory(repository.NewMemoryRepository(), security.NewHasher(4))
}

func TestDirectory_RegisterAndVerifyPassword(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	identity, err := d.Register(ctx, "User@Example.com", "correct-horse-1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if identity.Email != "user@example.com" {
		t.Errorf("email = %q, want lowercased", identity.Email)
	}
	if identity.PasswordHash == "" || identity.PasswordHash == "correct-horse-1" {
		t.Error("password was not hashed")
	}

	got, err := d.VerifyPassword(ctx, "user@example.com", "correct-horse-1")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if got.ID != identity.ID {
		t.Errorf("resolved identity %q, want %q", got.ID, identity.ID)
	}

	if _, err := d.VerifyPassword(ctx, "user@example.com", "wrong-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := d.VerifyPassword(ctx, "nobody@example.com", "correct-horse-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestDirectory_RegisterRejectsDuplicateEmail(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	if _, err := d.Register(ctx, "user@example.com", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := d.Register(ctx, "user@example.com", "other-password-2", "", ""); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Errorf("err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	if _, err := d.Register(ctx, "not-an-email", "correct-horse-1", "", ""); err == nil {
		t.Error("expected error for malformed email")
	}
	if _, err := d.Register(ctx, "user@example.com", "short1", "", ""); err == nil {
		t.Error("expected error for short password")
	}
	if _, err := d.Register(ctx, "user@example.com", "nonumbershere", "", ""); err == nil {
		t.Error("expected error for password without numbers")
	}
}

func TestDirectory_ResolveOAuthCreatesOnce(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	ext := &oauthdomain.Identity{
		Provider:      identitydomain.ProviderGoogle,
		SubjectID:     "google-sub-1",
		Email:         "oauth@example.com",
		EmailVerified: true,
		FirstName:     "Grace",
	}

	first, err := d.ResolveOAuth(ctx, ext)
	if err != nil {
		t.Fatalf("ResolveOAuth: %v", err)
	}
	second, err := d.ResolveOAuth(ctx, ext)
	if err != nil {
		t.Fatalf("ResolveOAuth again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat resolution created a new identity: %q vs %q", first.ID, second.ID)
	}
}

func TestDirectory_ResolveOAuthLinksByVerifiedEmail(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	registered, err := d.Register(ctx, "user@example.com", "correct-horse-1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	resolved, err := d.ResolveOAuth(ctx, &oauthdomain.Identity{
		Provider:      identitydomain.ProviderApple,
		SubjectID:     "apple-sub-1",
		Email:         "User@Example.com",
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("ResolveOAuth: %v", err)
	}
	if resolved.ID != registered.ID {
		t.Errorf("verified email did not link to existing identity")
	}
}

func TestDirectory_ResolveOAuthRejectsUnverifiedEmail(t *testing.T) {
	d := newTestDirectory()
	_, err := d.ResolveOAuth(context.Background(), &oauthdomain.Identity{
		Provider:  identitydomain.ProviderFacebook,
		SubjectID: "fb-sub-1",
		Email:     "user@example.com",
	})
	if !errors.Is(err, ErrEmailUnverified) {
		t.Errorf("err = %v, want ErrEmailUnverified", err)
	}
}

func TestDirectory_BindSigningKey(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	key := []byte("0123456789abcdef0123456789abcdef")

	binding, err := d.BindSigningKey(ctx, "identity-1", "ed25519", key)
	if err != nil {
		t.Fatalf("BindSigningKey: %v", err)
	}

	// Rebinding to the same identity is idempotent.
	again, err := d.BindSigningKey(ctx, "identity-1", "ed25519", key)
	if err != nil {
		t.Fatalf("BindSigningKey again: %v", err)
	}
	if again.Fingerprint != binding.Fingerprint {
		t.Errorf("fingerprint changed on rebind")
	}

	// A key binds to at most one identity.
	if _, err := d.BindSigningKey(ctx, "identity-2", "ed25519", key); !errors.Is(err, ErrKeyAlreadyBound) {
		t.Errorf("err = %v, want ErrKeyAlreadyBound", err)
	}
}
