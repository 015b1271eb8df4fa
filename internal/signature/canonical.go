// Package signature verifies cryptographically signed requests carried in the
// x-public-key / x-nonce / x-signature header contract.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Signed-request header names. x-public-key and x-signature carry standard
// (padded) base64; x-timestamp is a unix-seconds integer.
const (
	HeaderPublicKey = "x-public-key"
	HeaderNonce     = "x-nonce"
	HeaderSignature = "x-signature"
	HeaderTimestamp = "x-timestamp"
	HeaderAlgorithm = "x-key-algorithm"
	// HeaderBodyDigest carries the hex SHA-256 of the request payload for
	// transports where the raw body is not visible to the verifier.
	HeaderBodyDigest = "x-body-digest"
)

// Signing algorithm tags carried in x-key-algorithm.
const (
	AlgEd25519      = "ed25519"
	AlgRSAPSSSHA256 = "rsa-pss-sha256"
)

// CanonicalPayload is the deterministic byte representation both the signer
// and the verifier compute over the request's stable fields. The nonce is
// part of the payload so a captured signature cannot be replayed under a
// fresh nonce.
//
// Layout (versioned, newline-separated):
//
//	v1\n<METHOD>\n<path>\n<hex sha256(body)>\n<unix seconds>\n<nonce>
func CanonicalPayload(method, path string, bodySHA256 []byte, timestamp time.Time, nonce string) []byte {
	var b strings.Builder
	b.WriteString("v1\n")
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(hex.EncodeToString(bodySHA256))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(timestamp.Unix(), 10))
	b.WriteByte('\n')
	b.WriteString(nonce)
	return []byte(b.String())
}

// BodyDigest returns the SHA-256 of the request body. An empty body digests
// the empty string, so GET requests canonicalize the same on both sides.
func BodyDigest(body []byte) []byte {
	sum := sha256.Sum256(body)
	return sum[:]
}

// Fingerprint returns the hex SHA-256 of the raw public key bytes. It is the
// lookup key for both the nonce ledger and signing-key bindings.
func Fingerprint(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	return hex.EncodeToString(sum[:])
}
