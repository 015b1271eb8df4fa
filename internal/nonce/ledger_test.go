package nonce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/nonce/repository"
)

func testLedger(now time.Time) *Ledger {
	return NewLedger(repository.NewMemoryRepository(), 5*time.Minute, func() time.Time { return now })
}

func TestLedger_FirstAcceptThenReplay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLedger(now)
	ctx := context.Background()

	res, err := l.Accept(ctx, "key-a", "n1", now)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res != Accepted {
		t.Fatalf("first accept = %v, want Accepted", res)
	}

	res, err = l.Accept(ctx, "key-a", "n1", now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res != RejectedReplay {
		t.Errorf("replay = %v, want RejectedReplay", res)
	}
}

func TestLedger_SameNonceDifferentKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLedger(now)
	ctx := context.Background()

	if res, _ := l.Accept(ctx, "key-a", "n1", now); res != Accepted {
		t.Fatalf("key-a accept = %v", res)
	}
	if res, _ := l.Accept(ctx, "key-b", "n1", now); res != Accepted {
		t.Errorf("key-b accept = %v, want Accepted (nonces are per key)", res)
	}
}

func TestLedger_OutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLedger(now)
	ctx := context.Background()

	for _, ts := range []time.Time{now.Add(-10 * time.Minute), now.Add(10 * time.Minute)} {
		res, err := l.Accept(ctx, "key-a", "n-old", ts)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if res != RejectedOutsideWindow {
			t.Errorf("Accept(ts=%v) = %v, want RejectedOutsideWindow", ts, res)
		}
	}
	// An out-of-window rejection must not consume the nonce.
	if res, _ := l.Accept(ctx, "key-a", "n-old", now); res != Accepted {
		t.Errorf("in-window accept after rejection = %v, want Accepted", res)
	}
}

func TestLedger_ConcurrentSamePairExactlyOneWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLedger(now)
	ctx := context.Background()

	const goroutines = 32
	var accepted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := l.Accept(ctx, "key-a", "contended", now)
			if err != nil {
				t.Errorf("Accept: %v", err)
				return
			}
			if res == Accepted {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := accepted.Load(); got != 1 {
		t.Errorf("accepted = %d, want exactly 1", got)
	}
}

func TestLedger_Prune(t *testing.T) {
	repo := repository.NewMemoryRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	l := NewLedger(repo, 5*time.Minute, func() time.Time { return clock })
	ctx := context.Background()

	if res, _ := l.Accept(ctx, "key-a", "n1", now); res != Accepted {
		t.Fatal("setup accept failed")
	}

	clock = now.Add(20 * time.Minute)
	n, err := l.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
}
