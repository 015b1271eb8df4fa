package repository

import (
	"context"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/domain"
)

// Repository defines persistence for two-factor challenges.
// A subject has at most one challenge at a time; Replace enforces that.
type Repository interface {
	// Replace stores c, superseding any prior challenge for c.Subject.
	Replace(ctx context.Context, c *domain.Challenge) error
	// GetBySubject returns the challenge for subject, or nil if none exists.
	GetBySubject(ctx context.Context, subject string) (*domain.Challenge, error)
	// Consume removes the challenge for subject if its stored hash equals
	// codeHash, reporting whether a row was removed. Concurrent callers
	// see at most one true result per issued challenge.
	Consume(ctx context.Context, subject, codeHash string) (bool, error)
	// IncrementAttempts bumps the failed-attempt counter and returns the
	// new value, or 0 if no challenge exists for subject.
	IncrementAttempts(ctx context.Context, subject string) (int, error)
	// DeleteBySubject removes the challenge for subject, if any.
	DeleteBySubject(ctx context.Context, subject string) error
	// PruneExpired removes challenges whose expiry is before now.
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// DefaultChallengeTTL is the default two-factor code expiry.
const DefaultChallengeTTL = 10 * time.Minute
