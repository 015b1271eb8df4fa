package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	authdomain "github.com/projectNEWM/newm-server-sub005/internal/auth/domain"
	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	identityrepo "github.com/projectNEWM/newm-server-sub005/internal/identity/repository"
	identityservice "github.com/projectNEWM/newm-server-sub005/internal/identity/service"
	"github.com/projectNEWM/newm-server-sub005/internal/nonce"
	noncerepo "github.com/projectNEWM/newm-server-sub005/internal/nonce/repository"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
	oauthdomain "github.com/projectNEWM/newm-server-sub005/internal/oauth/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor"
	twofactorrepo "github.com/projectNEWM/newm-server-sub005/internal/twofactor/repository"
)

type stubResolver struct {
	identity *oauthdomain.Identity
	err      error
}

func (s *stubResolver) Resolve(ctx context.Context, provider identitydomain.Provider, token string) (*oauthdomain.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubGate struct {
	challenge bool
	called    bool
}

func (g *stubGate) ShouldChallenge(ctx context.Context, source netip.Addr, platform, token string) bool {
	g.called = true
	return g.challenge
}

type codeSink struct {
	mu   sync.Mutex
	code string
}

func (s *codeSink) Send(ctx context.Context, subject, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return nil
}

type testEnv struct {
	orchestrator *Orchestrator
	directory    *identityservice.Directory
	manager      *twofactor.Manager
	sink         *codeSink
	resolver     *stubResolver
	gate         *stubGate
	now          time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	directory := identityservice.NewDirectory(identityrepo.NewMemoryRepository(), security.NewHasher(4))
	ledger := nonce.NewLedger(noncerepo.NewMemoryRepository(), 5*time.Minute, clock)
	verifier := signature.NewVerifier(ledger, directory)
	sink := &codeSink{}
	manager := twofactor.NewManager(twofactorrepo.NewMemoryRepository(), sink, 10*time.Minute, 5, 6, clock)
	resolver := &stubResolver{}
	gate := &stubGate{}

	return &testEnv{
		orchestrator: NewOrchestrator(verifier, resolver, directory, manager, gate, nil),
		directory:    directory,
		manager:      manager,
		sink:         sink,
		resolver:     resolver,
		gate:         gate,
		now:          now,
	}
}

func rejectionClass(t *testing.T, err error) authdomain.Class {
	t.Helper()
	var rej *authdomain.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("error %v is not a Rejection", err)
	}
	return rej.Class
}

func TestOrchestrator_PasswordHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered, err := env.directory.Register(ctx, "user@example.com", "correct-horse-1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	identity, err := env.orchestrator.Authenticate(ctx, &Request{
		Email:    "user@example.com",
		Password: "correct-horse-1",
		Platform: "web",
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.ID != registered.ID {
		t.Errorf("identity = %q, want %q", identity.ID, registered.ID)
	}
	if !env.gate.called {
		t.Error("password login did not consult the gate")
	}
}

func TestOrchestrator_PasswordWrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.directory.Register(ctx, "user@example.com", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := env.orchestrator.Authenticate(ctx, &Request{
		Email:    "user@example.com",
		Password: "wrong-password-1",
		Platform: "web",
	})
	if got := rejectionClass(t, err); got != authdomain.Unauthenticated {
		t.Errorf("class = %v, want Unauthenticated", got)
	}
}

func TestOrchestrator_PasswordWithTwoFactor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered, err := env.directory.Register(ctx, "user@example.com", "correct-horse-1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	enrolled := *registered
	enrolled.TwoFactorEnrolled = true
	repo := identityrepo.NewMemoryRepository()
	if err := repo.Create(ctx, &enrolled); err != nil {
		t.Fatalf("Create: %v", err)
	}
	directory := identityservice.NewDirectory(repo, security.NewHasher(4))
	env.orchestrator = NewOrchestrator(nil, env.resolver, directory, env.manager, env.gate, nil)

	// Without a code.
	_, err = env.orchestrator.Authenticate(ctx, &Request{
		Email: "user@example.com", Password: "correct-horse-1", Platform: "web",
	})
	if got := rejectionClass(t, err); got != authdomain.Unauthenticated {
		t.Fatalf("missing code class = %v, want Unauthenticated", got)
	}

	// With a wrong code.
	if err := env.manager.Issue(ctx, "user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = env.orchestrator.Authenticate(ctx, &Request{
		Email: "user@example.com", Password: "correct-horse-1", TwoFactorCode: "000000", Platform: "web",
	})
	if got := rejectionClass(t, err); got != authdomain.Unauthenticated {
		t.Fatalf("wrong code class = %v, want Unauthenticated", got)
	}

	// With the delivered code.
	identity, err := env.orchestrator.Authenticate(ctx, &Request{
		Email: "user@example.com", Password: "correct-horse-1", TwoFactorCode: env.sink.code, Platform: "web",
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.ID != enrolled.ID {
		t.Errorf("identity = %q, want %q", identity.ID, enrolled.ID)
	}
}

func TestOrchestrator_AmbiguousMechanism(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orchestrator.Authenticate(context.Background(), &Request{
		Email:       "user@example.com",
		Password:    "correct-horse-1",
		BearerToken: "tok",
		Provider:    "google",
	})
	var rej *authdomain.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("error %v is not a Rejection", err)
	}
	if rej.Class != authdomain.MalformedInput || rej.Reason != "ambiguous_mechanism" {
		t.Errorf("rejection = %v/%q", rej.Class, rej.Reason)
	}
}

func TestOrchestrator_NoMechanism(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orchestrator.Authenticate(context.Background(), &Request{Platform: "web"})
	if got := rejectionClass(t, err); got != authdomain.MalformedInput {
		t.Errorf("class = %v, want MalformedInput", got)
	}
}

func TestOrchestrator_GateChallengesBeforeCredentialWork(t *testing.T) {
	env := newTestEnv(t)
	env.gate.challenge = true
	ctx := context.Background()
	if _, err := env.directory.Register(ctx, "user@example.com", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := env.orchestrator.Authenticate(ctx, &Request{
		Email: "user@example.com", Password: "correct-horse-1", Platform: "web",
	})
	if got := rejectionClass(t, err); got != authdomain.ChallengeRequired {
		t.Errorf("class = %v, want ChallengeRequired", got)
	}
}

func TestOrchestrator_SignedRequestBypassesGate(t *testing.T) {
	env := newTestEnv(t)
	env.gate.challenge = true
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	registered, err := env.directory.Register(ctx, "signer@example.com", "correct-horse-1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.directory.BindSigningKey(ctx, registered.ID, signature.AlgEd25519, pub); err != nil {
		t.Fatalf("BindSigningKey: %v", err)
	}

	body := []byte(`{"title":"song"}`)
	payload := signature.CanonicalPayload("POST", "/v1/songs", signature.BodyDigest(body), env.now, "n1")
	identity, err := env.orchestrator.Authenticate(ctx, &Request{
		PublicKey:    pub,
		KeyAlgorithm: signature.AlgEd25519,
		Nonce:        "n1",
		Signature:    ed25519.Sign(priv, payload),
		Method:       "POST",
		Path:         "/v1/songs",
		Body:         body,
		Timestamp:    env.now,
		Platform:     "web",
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.ID != registered.ID {
		t.Errorf("identity = %q, want %q", identity.ID, registered.ID)
	}
}

func TestOrchestrator_SignedRejectionsAreOpaque(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	// Key is never bound: UnknownKey internally.
	payload := signature.CanonicalPayload("GET", "/v1/me", signature.BodyDigest(nil), env.now, "n1")
	_, unknownKeyErr := env.orchestrator.Authenticate(ctx, &Request{
		PublicKey:    pub,
		KeyAlgorithm: signature.AlgEd25519,
		Nonce:        "n1",
		Signature:    ed25519.Sign(priv, payload),
		Method:       "GET",
		Path:         "/v1/me",
		Timestamp:    env.now,
		Platform:     "web",
	})
	// Garbage signature: BadSignature internally.
	_, badSigErr := env.orchestrator.Authenticate(ctx, &Request{
		PublicKey:    pub,
		KeyAlgorithm: signature.AlgEd25519,
		Nonce:        "n2",
		Signature:    make([]byte, ed25519.SignatureSize),
		Method:       "GET",
		Path:         "/v1/me",
		Timestamp:    env.now,
		Platform:     "web",
	})

	if rejectionClass(t, unknownKeyErr) != authdomain.Unauthenticated {
		t.Errorf("unknown key class = %v", rejectionClass(t, unknownKeyErr))
	}
	if rejectionClass(t, badSigErr) != authdomain.Unauthenticated {
		t.Errorf("bad signature class = %v", rejectionClass(t, badSigErr))
	}
	if unknownKeyErr.Error() != badSigErr.Error() {
		t.Errorf("rejection messages differ: %q vs %q", unknownKeyErr.Error(), badSigErr.Error())
	}
}

func TestOrchestrator_OAuthOutcomes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		resolver *stubResolver
		want     authdomain.Class
	}{
		{"invalid token", &stubResolver{err: oauth.ErrInvalidToken}, authdomain.TerminalUpstreamRejection},
		{"provider down", &stubResolver{err: oauth.ErrProviderUnavailable}, authdomain.TransientUpstreamFailure},
		{"unknown provider", &stubResolver{err: oauth.ErrUnknownProvider}, authdomain.MalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.resolver.err = tt.resolver.err
			_, err := env.orchestrator.Authenticate(ctx, &Request{
				Provider: "google", BearerToken: "tok", Platform: "web",
			})
			if got := rejectionClass(t, err); got != tt.want {
				t.Errorf("class = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrchestrator_OAuthHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.identity = &oauthdomain.Identity{
		Provider:      identitydomain.ProviderGoogle,
		SubjectID:     "google-sub-1",
		Email:         "oauth@example.com",
		EmailVerified: true,
	}

	identity, err := env.orchestrator.Authenticate(context.Background(), &Request{
		Provider: "google", BearerToken: "tok", Platform: "web",
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.Email != "oauth@example.com" {
		t.Errorf("email = %q", identity.Email)
	}

	// Resolving again maps to the same identity.
	again, err := env.orchestrator.Authenticate(context.Background(), &Request{
		Provider: "google", BearerToken: "tok", Platform: "web",
	})
	if err != nil {
		t.Fatalf("Authenticate again: %v", err)
	}
	if again.ID != identity.ID {
		t.Errorf("repeat resolution created a new identity")
	}
}
