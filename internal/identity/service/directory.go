package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/identity/repository"
	oauthdomain "github.com/projectNEWM/newm-server-sub005/internal/oauth/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
)

// Sentinel errors for the identity directory; callers map them to outcomes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrKeyAlreadyBound        = errors.New("public key already bound to another identity")
	ErrEmailUnverified        = errors.New("provider did not verify the email address")
)

// Directory manages identity records and their linked credentials:
// password hashes, OAuth provider links, and signing-key bindings.
type Directory struct {
	repo   repository.Repository
	hasher *security.Hasher
}

func NewDirectory(repo repository.Repository, hasher *security.Hasher) *Directory {
	return &Directory{repo: repo, hasher: hasher}
}

// Register creates an identity with an email/password credential.
func (d *Directory) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := d.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := d.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	identity := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.repo.Create(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// VerifyPassword authenticates email/password, returning the identity on success.
// Missing identity and wrong password collapse into ErrInvalidCredentials.
func (d *Directory) VerifyPassword(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	identity, err := d.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !d.hasher.Verify([]byte(password), identity.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

// ResolveOAuth returns the identity behind a normalized provider identity,
// creating or linking one on first sight. A provider subject already linked
// wins outright; otherwise a verified email matching an existing identity
// links the provider to it; otherwise a fresh identity is created.
func (d *Directory) ResolveOAuth(ctx context.Context, ext *oauthdomain.Identity) (*domain.Identity, error) {
	identity, err := d.repo.GetByOAuthLink(ctx, ext.Provider, ext.SubjectID)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		return identity, nil
	}

	email := strings.TrimSpace(strings.ToLower(ext.Email))
	if email != "" && ext.EmailVerified {
		identity, err = d.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	if identity == nil {
		if email == "" || !ext.EmailVerified {
			return nil, ErrEmailUnverified
		}
		identity = &domain.Identity{
			ID:         uuid.New().String(),
			Email:      email,
			FirstName:  strings.TrimSpace(ext.FirstName),
			LastName:   strings.TrimSpace(ext.LastName),
			PictureURL: ext.PictureURL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := d.repo.Create(ctx, identity); err != nil {
			return nil, err
		}
	}
	link := &domain.OAuthLink{
		ID:         uuid.New().String(),
		IdentityID: identity.ID,
		Provider:   ext.Provider,
		SubjectID:  ext.SubjectID,
		CreatedAt:  now,
	}
	if err := d.repo.LinkOAuth(ctx, link); err != nil {
		return nil, err
	}
	return identity, nil
}

// BindSigningKey binds a public key to the identity. A key binds to at most
// one identity; rebinding requires removing the old binding first.
func (d *Directory) BindSigningKey(ctx context.Context, identityID, algorithm string, publicKey []byte) (*domain.KeyBinding, error) {
	fingerprint := signature.Fingerprint(publicKey)
	existing, err := d.repo.GetKeyBinding(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IdentityID == identityID {
			return existing, nil
		}
		return nil, ErrKeyAlreadyBound
	}
	binding := &domain.KeyBinding{
		Fingerprint: fingerprint,
		IdentityID:  identityID,
		Algorithm:   algorithm,
		PublicKey:   publicKey,
		CreatedAt:   time.Now().UTC(),
	}
	if err := d.repo.BindKey(ctx, binding); err != nil {
		return nil, err
	}
	return binding, nil
}

// GetByID returns the identity for id, or nil if not found.
func (d *Directory) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return d.repo.GetByID(ctx, id)
}

// GetKeyBinding returns the binding for fingerprint, or nil if not found.
func (d *Directory) GetKeyBinding(ctx context.Context, fingerprint string) (*domain.KeyBinding, error) {
	return d.repo.GetKeyBinding(ctx, fingerprint)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return errors.New("password must contain letters and numbers")
	}
	return nil
}
