package service

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/audit"
	authdomain "github.com/projectNEWM/newm-server-sub005/internal/auth/domain"
	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	identityservice "github.com/projectNEWM/newm-server-sub005/internal/identity/service"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
	oauthdomain "github.com/projectNEWM/newm-server-sub005/internal/oauth/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor"
)

// Request carries everything the orchestrator may need to authenticate one
// inbound call. Exactly one mechanism's fields should be populated; filling
// markers for more than one is itself a rejection.
type Request struct {
	Source          netip.Addr
	Platform        string
	AssessmentToken string

	// Signed-request fields (x-public-key / x-nonce / x-signature headers).
	PublicKey    []byte
	KeyAlgorithm string
	Nonce        string
	Signature    []byte
	Method       string
	Path         string
	Body         []byte
	// BodyDigest is the precomputed SHA-256 of the payload, for transports
	// where the raw body is not available here. Ignored when Body is set.
	BodyDigest []byte
	Timestamp  time.Time

	// Bearer OAuth fields.
	Provider    string
	BearerToken string

	// Password fields.
	Email         string
	Password      string
	TwoFactorCode string
}

// SignatureVerifier is the signed-request verification collaborator.
type SignatureVerifier interface {
	Verify(ctx context.Context, req *signature.Request) (string, signature.Verdict, error)
}

// OAuthResolver exchanges a provider token for a normalized identity.
type OAuthResolver interface {
	Resolve(ctx context.Context, provider identitydomain.Provider, token string) (*oauthdomain.Identity, error)
}

// IdentityDirectory is the identity lookup/linking collaborator.
type IdentityDirectory interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
	VerifyPassword(ctx context.Context, email, password string) (*identitydomain.Identity, error)
	ResolveOAuth(ctx context.Context, ext *oauthdomain.Identity) (*identitydomain.Identity, error)
}

// CodeVerifier checks a two-factor code for a subject.
type CodeVerifier interface {
	Verify(ctx context.Context, subject, code string) (twofactor.Result, error)
}

// ChallengeGate decides whether credential work may proceed at all.
type ChallengeGate interface {
	ShouldChallenge(ctx context.Context, source netip.Addr, platform, token string) bool
}

// Orchestrator composes the authentication components into a single decision:
// an identity, or a typed rejection whose message is opaque to the caller.
type Orchestrator struct {
	verifier  SignatureVerifier
	resolver  OAuthResolver
	directory IdentityDirectory
	codes     CodeVerifier
	gate      ChallengeGate
	decisions audit.DecisionLogger
}

func NewOrchestrator(
	verifier SignatureVerifier,
	resolver OAuthResolver,
	directory IdentityDirectory,
	codes CodeVerifier,
	gate ChallengeGate,
	decisions audit.DecisionLogger,
) *Orchestrator {
	return &Orchestrator{
		verifier:  verifier,
		resolver:  resolver,
		directory: directory,
		codes:     codes,
		gate:      gate,
		decisions: decisions,
	}
}

// Authenticate evaluates exactly one mechanism for req and returns the
// resolved identity or a *authdomain.Rejection.
func (o *Orchestrator) Authenticate(ctx context.Context, req *Request) (*identitydomain.Identity, error) {
	mechanism, rej := detectMechanism(req)
	if rej != nil {
		o.log(ctx, "", string(mechanism), rej, req.Platform)
		return nil, rej
	}

	// Password and OAuth logins are gated before any credential work so a
	// flood of bad logins costs no hashing or upstream calls. Signed
	// requests carry their own proof of key possession and skip the gate.
	if mechanism != authdomain.MechanismSigned && o.gate != nil {
		if o.gate.ShouldChallenge(ctx, req.Source, req.Platform, req.AssessmentToken) {
			rej := authdomain.Reject(authdomain.ChallengeRequired, "risk_challenge_required")
			o.log(ctx, "", string(mechanism), rej, req.Platform)
			return nil, rej
		}
	}

	var identity *identitydomain.Identity
	var err error
	switch mechanism {
	case authdomain.MechanismSigned:
		identity, err = o.authenticateSigned(ctx, req)
	case authdomain.MechanismOAuth:
		identity, err = o.authenticateOAuth(ctx, req)
	default:
		identity, err = o.authenticatePassword(ctx, req)
	}
	if err != nil {
		var rej *authdomain.Rejection
		if !errors.As(err, &rej) {
			rej = authdomain.Reject(authdomain.TransientUpstreamFailure, "internal_error")
		}
		o.log(ctx, "", string(mechanism), rej, req.Platform)
		return nil, rej
	}
	o.decide(ctx, identity.ID, string(mechanism), "authenticated", "", req.Platform)
	return identity, nil
}

func detectMechanism(req *Request) (authdomain.Mechanism, *authdomain.Rejection) {
	signed := len(req.PublicKey) > 0 || req.Nonce != "" || len(req.Signature) > 0
	bearer := req.BearerToken != "" || req.Provider != ""
	password := req.Email != "" || req.Password != ""

	count := 0
	for _, present := range []bool{signed, bearer, password} {
		if present {
			count++
		}
	}
	switch {
	case count == 0:
		return "", authdomain.Reject(authdomain.MalformedInput, "no_mechanism")
	case count > 1:
		return "", authdomain.Reject(authdomain.MalformedInput, "ambiguous_mechanism")
	case signed:
		return authdomain.MechanismSigned, nil
	case bearer:
		return authdomain.MechanismOAuth, nil
	default:
		return authdomain.MechanismPassword, nil
	}
}

func (o *Orchestrator) authenticateSigned(ctx context.Context, req *Request) (*identitydomain.Identity, error) {
	digest := req.BodyDigest
	if len(req.Body) > 0 || digest == nil {
		digest = signature.BodyDigest(req.Body)
	}
	identityID, verdict, err := o.verifier.Verify(ctx, &signature.Request{
		PublicKey:  req.PublicKey,
		Algorithm:  req.KeyAlgorithm,
		Nonce:      req.Nonce,
		Signature:  req.Signature,
		Method:     req.Method,
		Path:       req.Path,
		BodySHA256: digest,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "verifier_error")
	}
	switch verdict {
	case signature.Verified:
	case signature.Malformed:
		return nil, authdomain.Reject(authdomain.MalformedInput, "malformed_signed_request")
	default:
		// UnknownKey, BadSignature and BadNonce collapse into one opaque
		// rejection; the verdict survives only in the decision log.
		return nil, authdomain.Reject(authdomain.Unauthenticated, verdict.String())
	}
	identity, err := o.directory.GetByID(ctx, identityID)
	if err != nil {
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "directory_error")
	}
	if identity == nil {
		return nil, authdomain.Reject(authdomain.Unauthenticated, "binding_without_identity")
	}
	return identity, nil
}

func (o *Orchestrator) authenticateOAuth(ctx context.Context, req *Request) (*identitydomain.Identity, error) {
	ext, err := o.resolver.Resolve(ctx, identitydomain.Provider(req.Provider), req.BearerToken)
	switch {
	case errors.Is(err, oauth.ErrUnknownProvider):
		return nil, authdomain.Reject(authdomain.MalformedInput, "unknown_provider")
	case errors.Is(err, oauth.ErrInvalidToken):
		return nil, authdomain.Reject(authdomain.TerminalUpstreamRejection, "invalid_token")
	case errors.Is(err, oauth.ErrProviderUnavailable):
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "provider_unavailable")
	case err != nil:
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "resolver_error")
	}
	identity, err := o.directory.ResolveOAuth(ctx, ext)
	if err != nil {
		if errors.Is(err, identityservice.ErrEmailUnverified) {
			return nil, authdomain.Reject(authdomain.TerminalUpstreamRejection, "email_unverified")
		}
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "directory_error")
	}
	return identity, nil
}

func (o *Orchestrator) authenticatePassword(ctx context.Context, req *Request) (*identitydomain.Identity, error) {
	identity, err := o.directory.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			return nil, authdomain.Reject(authdomain.Unauthenticated, "invalid_credentials")
		}
		return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "directory_error")
	}
	if identity.TwoFactorEnrolled {
		if req.TwoFactorCode == "" {
			return nil, authdomain.Reject(authdomain.Unauthenticated, "two_factor_missing")
		}
		result, err := o.codes.Verify(ctx, identity.Email, req.TwoFactorCode)
		if err != nil {
			return nil, authdomain.Reject(authdomain.TransientUpstreamFailure, "two_factor_error")
		}
		if result != twofactor.Verified {
			return nil, authdomain.Reject(authdomain.Unauthenticated, "two_factor_"+result.String())
		}
	}
	return identity, nil
}

func (o *Orchestrator) log(ctx context.Context, identityID, mechanism string, rej *authdomain.Rejection, platform string) {
	o.decide(ctx, identityID, mechanism, rej.Class.String(), rej.Reason, platform)
}

func (o *Orchestrator) decide(ctx context.Context, identityID, mechanism, outcome, reason, platform string) {
	if o.decisions == nil {
		return
	}
	o.decisions.LogDecision(ctx, identityID, mechanism, outcome, reason, platform)
}
