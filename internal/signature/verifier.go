package signature

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"time"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/nonce"
)

// Request is the ephemeral signed-request projection constructed per inbound
// request. It is never persisted.
type Request struct {
	PublicKey  []byte
	Algorithm  string
	Nonce      string
	Signature  []byte
	Method     string
	Path       string
	BodySHA256 []byte
	Timestamp  time.Time
}

// Verdict is the fine-grained verification outcome. It feeds internal audit
// logging only; callers across the trust boundary receive one opaque
// rejection for everything but Verified, so "key not registered" cannot be
// distinguished from "signature invalid".
type Verdict int

const (
	Verified Verdict = iota
	Malformed
	BadSignature
	BadNonce
	UnknownKey
)

func (v Verdict) String() string {
	switch v {
	case Verified:
		return "verified"
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad_signature"
	case BadNonce:
		return "bad_nonce"
	case UnknownKey:
		return "unknown_key"
	default:
		return "unknown"
	}
}

// BindingStore looks up the identity bound to a signing key. Implemented by
// the identity repository.
type BindingStore interface {
	GetKeyBinding(ctx context.Context, fingerprint string) (*identitydomain.KeyBinding, error)
}

// Verifier validates signed requests: signature first, then nonce admission,
// then binding resolution. The ordering matters — a forged signature must
// never consume a legitimate nonce slot.
type Verifier struct {
	ledger   *nonce.Ledger
	bindings BindingStore
}

// NewVerifier returns a Verifier over the given nonce ledger and binding store.
func NewVerifier(ledger *nonce.Ledger, bindings BindingStore) *Verifier {
	return &Verifier{ledger: ledger, bindings: bindings}
}

// Verify checks the signed request and resolves it to an identity ID.
// identityID is non-empty only when verdict is Verified. err reports
// infrastructure failures (storage, context cancellation), not credential
// mismatches.
func (v *Verifier) Verify(ctx context.Context, req *Request) (identityID string, verdict Verdict, err error) {
	if len(req.PublicKey) == 0 || req.Nonce == "" || len(req.Signature) == 0 || req.Timestamp.IsZero() {
		return "", Malformed, nil
	}

	payload := CanonicalPayload(req.Method, req.Path, req.BodySHA256, req.Timestamp, req.Nonce)
	if !verifyRaw(req.Algorithm, req.PublicKey, payload, req.Signature) {
		return "", BadSignature, nil
	}

	fingerprint := Fingerprint(req.PublicKey)
	res, err := v.ledger.Accept(ctx, fingerprint, req.Nonce, req.Timestamp)
	if err != nil {
		return "", BadNonce, err
	}
	if res != nonce.Accepted {
		return "", BadNonce, nil
	}

	binding, err := v.bindings.GetKeyBinding(ctx, fingerprint)
	if err != nil {
		return "", UnknownKey, err
	}
	if binding == nil || binding.Algorithm != req.Algorithm {
		return "", UnknownKey, nil
	}
	return binding.IdentityID, Verified, nil
}

// verifyRaw verifies sig over payload with the algorithm-tagged raw key.
// Ed25519 keys are the raw 32 bytes; RSA keys are PKIX DER.
func verifyRaw(alg string, publicKey, payload, sig []byte) bool {
	switch alg {
	case AlgEd25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(publicKey), payload, sig)
	case AlgRSAPSSSHA256:
		parsed, err := x509.ParsePKIXPublicKey(publicKey)
		if err != nil {
			return false
		}
		rsaPub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return false
		}
		digest := sha256.Sum256(payload)
		opts := &rsa.PSSOptions{SaltLength: sha256.Size, Hash: crypto.SHA256}
		return rsa.VerifyPSS(rsaPub, crypto.SHA256, digest[:], sig, opts) == nil
	default:
		return false
	}
}
