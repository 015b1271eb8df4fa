package repository

import (
	"context"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/nonce/domain"
)

// Repository defines persistence for consumed nonces.
type Repository interface {
	// Insert records the nonce and reports whether it was newly recorded.
	// false means the (fingerprint, nonce) pair was already present — callers
	// treat that as a replay. Insert must be atomic: of two concurrent inserts
	// of the same pair, exactly one returns true.
	Insert(ctx context.Context, r *domain.Record) (bool, error)
	// PruneBefore deletes records first seen before cutoff and returns how
	// many were removed. Correctness does not depend on timely pruning.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
