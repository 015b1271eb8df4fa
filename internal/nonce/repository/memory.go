package repository

import (
	"context"
	"sync"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/nonce/domain"
)

// MemoryRepository is an in-process nonce store for tests and single-node use.
type MemoryRepository struct {
	mu   sync.Mutex
	seen map[string]time.Time // key: fingerprint + "\x00" + nonce
}

// NewMemoryRepository returns an empty in-memory nonce repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{seen: make(map[string]time.Time)}
}

// Insert records the nonce; returns false when the pair already exists.
func (r *MemoryRepository) Insert(ctx context.Context, rec *domain.Record) (bool, error) {
	key := rec.KeyFingerprint + "\x00" + rec.Nonce
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = rec.FirstSeen
	return true, nil
}

// PruneBefore deletes nonce records first seen before cutoff.
func (r *MemoryRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.seen {
		if t.Before(cutoff) {
			delete(r.seen, k)
			n++
		}
	}
	return n, nil
}
