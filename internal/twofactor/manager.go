package twofactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/repository"
)

// ErrDeliveryFailed indicates the code was issued but could not be sent
// to the subject. The stored challenge remains valid; reissuing replaces it.
var ErrDeliveryFailed = errors.New("twofactor: code delivery failed")

// Sender delivers a plaintext code to a subject (email address or phone).
type Sender interface {
	Send(ctx context.Context, subject, code string) error
}

// Result classifies the outcome of a verification attempt.
type Result int

const (
	Verified Result = iota
	NoActiveChallenge
	Expired
	Mismatch
)

func (r Result) String() string {
	switch r {
	case Verified:
		return "verified"
	case NoActiveChallenge:
		return "no_active_challenge"
	case Expired:
		return "expired"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Manager issues and verifies short-lived single-use codes.
type Manager struct {
	repo        repository.Repository
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	codeLength  int
	now         func() time.Time
}

// NewManager wires a code manager. ttl, maxAttempts and codeLength fall back
// to 10 minutes, 5 and 6 when non-positive. now may be nil for the wall clock.
func NewManager(repo repository.Repository, sender Sender, ttl time.Duration, maxAttempts, codeLength int, now func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = repository.DefaultChallengeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if codeLength <= 0 {
		codeLength = 6
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		repo:        repo,
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		codeLength:  codeLength,
		now:         now,
	}
}

// Issue generates a fresh code for subject, stores its hash (superseding any
// prior challenge for the same subject) and hands the plaintext to the sender.
// The plaintext is never retained or logged.
func (m *Manager) Issue(ctx context.Context, subject string) error {
	code, err := GenerateCode(m.codeLength)
	if err != nil {
		return fmt.Errorf("twofactor: generate code: %w", err)
	}
	now := m.now()
	challenge := &domain.Challenge{
		ID:        uuid.NewString(),
		Subject:   subject,
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.repo.Replace(ctx, challenge); err != nil {
		return fmt.Errorf("twofactor: store challenge: %w", err)
	}
	if m.sender == nil {
		return fmt.Errorf("%w: no sender configured", ErrDeliveryFailed)
	}
	if err := m.sender.Send(ctx, subject, code); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}

// Verify checks code against the active challenge for subject.
// Success consumes the challenge; a mismatch leaves it active until the
// attempt limit is reached, after which the challenge is invalidated.
func (m *Manager) Verify(ctx context.Context, subject, code string) (Result, error) {
	challenge, err := m.repo.GetBySubject(ctx, subject)
	if err != nil {
		return NoActiveChallenge, fmt.Errorf("twofactor: load challenge: %w", err)
	}
	if challenge == nil {
		return NoActiveChallenge, nil
	}
	if m.now().After(challenge.ExpiresAt) {
		return Expired, nil
	}
	if !CodeEqual(code, challenge.CodeHash) {
		attempts, err := m.repo.IncrementAttempts(ctx, subject)
		if err != nil {
			return Mismatch, fmt.Errorf("twofactor: record attempt: %w", err)
		}
		if attempts >= m.maxAttempts {
			if err := m.repo.DeleteBySubject(ctx, subject); err != nil {
				return Mismatch, fmt.Errorf("twofactor: invalidate challenge: %w", err)
			}
		}
		return Mismatch, nil
	}
	consumed, err := m.repo.Consume(ctx, subject, challenge.CodeHash)
	if err != nil {
		return NoActiveChallenge, fmt.Errorf("twofactor: consume challenge: %w", err)
	}
	if !consumed {
		// Lost the race against a concurrent verifier or a reissue.
		return NoActiveChallenge, nil
	}
	return Verified, nil
}

// Prune removes expired challenges and reports how many were deleted.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	return m.repo.PruneExpired(ctx, m.now())
}
