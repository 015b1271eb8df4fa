package twofactor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/repository"
)

type captureSender struct {
	mu       sync.Mutex
	lastCode string
	sendErr  error
}

func (s *captureSender) Send(ctx context.Context, subject, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.lastCode = code
	return nil
}

func (s *captureSender) code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

func newTestManager(sender Sender, now func() time.Time) *Manager {
	return NewManager(repository.NewMemoryRepository(), sender, 10*time.Minute, 5, 6, now)
}

func TestManager_IssueThenVerifyOnce(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sender := &captureSender{}
	mgr := newTestManager(sender, func() time.Time { return clock })
	ctx := context.Background()

	if err := mgr.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sender.code()
	if len(code) != 6 {
		t.Fatalf("delivered code = %q, want 6 digits", code)
	}

	clock = base.Add(1 * time.Second)
	res, err := mgr.Verify(ctx, "user@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != Verified {
		t.Fatalf("first verify = %v, want Verified", res)
	}

	clock = base.Add(2 * time.Second)
	res, err = mgr.Verify(ctx, "user@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != NoActiveChallenge {
		t.Errorf("second verify = %v, want NoActiveChallenge", res)
	}
}

func TestManager_VerifyAfterTTLExpires(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sender := &captureSender{}
	mgr := newTestManager(sender, func() time.Time { return clock })
	ctx := context.Background()

	if err := mgr.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = base.Add(10*time.Minute + time.Second)
	res, err := mgr.Verify(ctx, "user@example.com", sender.code())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != Expired {
		t.Errorf("verify after TTL = %v, want Expired", res)
	}
}

func TestManager_UnknownSubject(t *testing.T) {
	mgr := newTestManager(&captureSender{}, nil)
	res, err := mgr.Verify(context.Background(), "nobody@example.com", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != NoActiveChallenge {
		t.Errorf("verify without challenge = %v, want NoActiveChallenge", res)
	}
}

func TestManager_AttemptLimitInvalidates(t *testing.T) {
	sender := &captureSender{}
	mgr := newTestManager(sender, nil)
	ctx := context.Background()

	if err := mgr.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	for i := 0; i < 5; i++ {
		res, err := mgr.Verify(ctx, "user@example.com", "000000")
		if err != nil {
			t.Fatalf("Verify %d: %v", i, err)
		}
		if res != Mismatch {
			t.Fatalf("verify %d = %v, want Mismatch", i, res)
		}
	}

	// The correct code no longer works once the limit is exhausted.
	res, err := mgr.Verify(ctx, "user@example.com", sender.code())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res != NoActiveChallenge {
		t.Errorf("verify after limit = %v, want NoActiveChallenge", res)
	}
}

func TestManager_ReissueSupersedes(t *testing.T) {
	sender := &captureSender{}
	mgr := newTestManager(sender, nil)
	ctx := context.Background()

	if err := mgr.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	first := sender.code()

	// Reissue until we draw a different code, then check the old one is dead.
	second := first
	for i := 0; i < 20 && second == first; i++ {
		if err := mgr.Issue(ctx, "user@example.com"); err != nil {
			t.Fatalf("Issue: %v", err)
		}
		second = sender.code()
	}
	if second == first {
		t.Skip("could not draw a distinct code")
	}

	if res, _ := mgr.Verify(ctx, "user@example.com", first); res != Mismatch {
		t.Errorf("superseded code verify = %v, want Mismatch", res)
	}
	if res, _ := mgr.Verify(ctx, "user@example.com", second); res != Verified {
		t.Errorf("current code verify = %v, want Verified", res)
	}
}

func TestManager_DeliveryFailure(t *testing.T) {
	sender := &captureSender{sendErr: errors.New("smtp down")}
	mgr := newTestManager(sender, nil)

	err := mgr.Issue(context.Background(), "user@example.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("Issue error = %v, want ErrDeliveryFailed", err)
	}
}

func TestManager_NoSenderConfigured(t *testing.T) {
	repo := repository.NewMemoryRepository()
	mgr := NewManager(repo, nil, 10*time.Minute, 5, 6, nil)

	err := mgr.Issue(context.Background(), "user@example.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("Issue error = %v, want ErrDeliveryFailed", err)
	}
	challenge, err := repo.GetBySubject(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if challenge == nil {
		t.Error("challenge was not stored when delivery failed")
	}
}

func TestManager_ConcurrentVerifySingleWinner(t *testing.T) {
	sender := &captureSender{}
	mgr := newTestManager(sender, nil)
	ctx := context.Background()

	if err := mgr.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sender.code()

	const workers = 32
	var verified atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := mgr.Verify(ctx, "user@example.com", code)
			if err != nil {
				t.Errorf("Verify: %v", err)
				return
			}
			if res == Verified {
				verified.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := verified.Load(); got != 1 {
		t.Errorf("verified winners = %d, want exactly 1", got)
	}
}
