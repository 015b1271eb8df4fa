package providers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppleJWKSURL is the published endpoint for Apple's token signing keys.
const AppleJWKSURL = "https://appleid.apple.com/auth/keys"

const jwksCacheTTL = 6 * time.Hour

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSKeyfunc resolves JWT signing keys from a JWKS endpoint, caching the
// document between fetches. A fetch failure surfaces as the validator's
// unavailable error, not an invalid-token rejection.
type JWKSKeyfunc struct {
	URL    string
	Client *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSKeyfunc returns a cached keyfunc over the given JWKS URL.
func NewJWKSKeyfunc(url string, client *http.Client) *JWKSKeyfunc {
	return &JWKSKeyfunc{URL: url, Client: httpClientOrDefault(client)}
}

// Keyfunc is the jwt.Keyfunc adapter.
func (j *JWKSKeyfunc) Keyfunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}
	key, err := j.lookup(kid)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (j *JWKSKeyfunc) lookup(kid string) (*rsa.PublicKey, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if key, ok := j.keys[kid]; ok && time.Since(j.fetchedAt) < jwksCacheTTL {
		return key, nil
	}
	if err := j.refreshLocked(); err != nil {
		// Serve a stale key rather than failing if we have one.
		if key, ok := j.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}
	key, ok := j.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key with kid %q", kid)
	}
	return key, nil
}

func (j *JWKSKeyfunc) refreshLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, nil)
	if err != nil {
		return err
	}
	resp, err := j.Client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: status=%d", resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks document has no usable RSA keys")
	}
	j.keys = keys
	j.fetchedAt = time.Now()
	return nil
}

func parseRSAJWK(k jwksKey) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
