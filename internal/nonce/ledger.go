// Package nonce tracks consumed request nonces per signing key to block
// signature replay.
package nonce

import (
	"context"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/nonce/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/nonce/repository"
)

// Result classifies the outcome of a nonce admission.
type Result int

const (
	// Accepted means the nonce was durably recorded and the request may proceed.
	Accepted Result = iota
	// RejectedReplay means the nonce was already consumed for this key.
	RejectedReplay
	// RejectedOutsideWindow means the request timestamp is outside the
	// clock-skew tolerance; storage is not consulted for these.
	RejectedOutsideWindow
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedReplay:
		return "replay"
	case RejectedOutsideWindow:
		return "outside_window"
	default:
		return "unknown"
	}
}

// Ledger admits each (key, nonce) pair at most once within the skew window.
type Ledger struct {
	repo repository.Repository
	skew time.Duration
	now  func() time.Time
}

// NewLedger returns a Ledger over repo with the given clock-skew tolerance.
// now may be nil to use wall-clock time.
func NewLedger(repo repository.Repository, skew time.Duration, now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{repo: repo, skew: skew, now: now}
}

// Accept admits the nonce for the given key fingerprint. Timestamps farther
// than the skew tolerance from ledger time are rejected without touching
// storage, which also bounds ledger growth. The nonce is recorded before
// Accepted is returned; of two concurrent calls with the same pair exactly
// one is Accepted.
func (l *Ledger) Accept(ctx context.Context, keyFingerprint, nonceValue string, timestamp time.Time) (Result, error) {
	now := l.now()
	diff := now.Sub(timestamp)
	if diff < 0 {
		diff = -diff
	}
	if diff > l.skew {
		return RejectedOutsideWindow, nil
	}
	inserted, err := l.repo.Insert(ctx, &domain.Record{
		KeyFingerprint: keyFingerprint,
		Nonce:          nonceValue,
		FirstSeen:      now,
	})
	if err != nil {
		return RejectedReplay, err
	}
	if !inserted {
		return RejectedReplay, nil
	}
	return Accepted, nil
}

// Prune lazily deletes records older than the skew window. Safe to call from
// a background ticker; correctness never depends on it running.
func (l *Ledger) Prune(ctx context.Context) (int64, error) {
	return l.repo.PruneBefore(ctx, l.now().Add(-l.skew))
}
