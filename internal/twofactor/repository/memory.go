package repository

import (
	"context"
	"sync"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/domain"
)

// MemoryRepository is an in-memory challenge store for tests and local runs.
type MemoryRepository struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{challenges: make(map[string]*domain.Challenge)}
}

func (r *MemoryRepository) Replace(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.Attempts = 0
	r.challenges[c.Subject] = &cp
	return nil
}

func (r *MemoryRepository) GetBySubject(ctx context.Context, subject string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[subject]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) Consume(ctx context.Context, subject, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[subject]
	if !ok || c.CodeHash != codeHash {
		return false, nil
	}
	delete(r.challenges, subject)
	return true, nil
}

func (r *MemoryRepository) IncrementAttempts(ctx context.Context, subject string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[subject]
	if !ok {
		return 0, nil
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *MemoryRepository) DeleteBySubject(ctx context.Context, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.challenges, subject)
	return nil
}

func (r *MemoryRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for subject, c := range r.challenges {
		if c.ExpiresAt.Before(now) {
			delete(r.challenges, subject)
			n++
		}
	}
	return n, nil
}
