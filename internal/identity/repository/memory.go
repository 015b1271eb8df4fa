package repository

import (
	"context"
	"sync"

	"github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
)

// MemoryRepository is an in-memory identity store for tests and local runs.
type MemoryRepository struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	links      map[string]*domain.OAuthLink
	bindings   map[string]*domain.KeyBinding
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		identities: make(map[string]*domain.Identity),
		links:      make(map[string]*domain.OAuthLink),
		bindings:   make(map[string]*domain.KeyBinding),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.Email == email {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.identities[i.ID] = &cp
	return nil
}

func (r *MemoryRepository) UpdateProfile(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.identities[i.ID]
	if !ok {
		return nil
	}
	existing.FirstName = i.FirstName
	existing.LastName = i.LastName
	existing.PictureURL = i.PictureURL
	existing.UpdatedAt = i.UpdatedAt
	return nil
}

func linkKey(provider domain.Provider, subjectID string) string {
	return string(provider) + "\x00" + subjectID
}

func (r *MemoryRepository) GetByOAuthLink(ctx context.Context, provider domain.Provider, subjectID string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[linkKey(provider, subjectID)]
	if !ok {
		return nil, nil
	}
	i, ok := r.identities[l.IdentityID]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *MemoryRepository) LinkOAuth(ctx context.Context, l *domain.OAuthLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.links[linkKey(l.Provider, l.SubjectID)] = &cp
	return nil
}

func (r *MemoryRepository) GetKeyBinding(ctx context.Context, fingerprint string) (*domain.KeyBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[fingerprint]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) BindKey(ctx context.Context, b *domain.KeyBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bindings[b.Fingerprint] = &cp
	return nil
}
