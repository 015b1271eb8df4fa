package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
)

type appleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // Apple sends a bool or the string "true"
}

// AppleValidator verifies Apple identity tokens (signed JWTs) locally.
// Keyfunc resolves Apple's signing key, typically from their JWKS; tests
// supply a static key.
type AppleValidator struct {
	Issuer   string
	Audience string
	Keyfunc  jwt.Keyfunc
}

// NewAppleValidator returns a validator for Apple identity tokens.
// issuer may be empty to use Apple's issuer.
func NewAppleValidator(issuer, audience string, keyfunc jwt.Keyfunc) *AppleValidator {
	if issuer == "" {
		issuer = "https://appleid.apple.com"
	}
	return &AppleValidator{Issuer: issuer, Audience: audience, Keyfunc: keyfunc}
}

func (v *AppleValidator) Provider() identitydomain.Provider { return identitydomain.ProviderApple }

// Validate parses and verifies the identity token and extracts subject claims.
// Signature, issuer, audience, and expiry failures all map to ErrInvalidToken;
// a Keyfunc failure (e.g. JWKS fetch) maps to ErrProviderUnavailable.
func (v *AppleValidator) Validate(ctx context.Context, token string) (*oauth.Claims, error) {
	claims := &appleClaims{}
	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfuncWithContext(ctx), opts...)
	if err != nil {
		if errors.Is(err, errKeyfuncUnavailable) {
			return nil, fmt.Errorf("%w: %v", oauth.ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", oauth.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, oauth.ErrInvalidToken
	}
	verified := false
	switch ev := claims.EmailVerified.(type) {
	case bool:
		verified = ev
	case string:
		verified = ev == "true"
	}
	return &oauth.Claims{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: verified,
	}, nil
}

var errKeyfuncUnavailable = errors.New("signing key lookup failed")

func (v *AppleValidator) keyfuncWithContext(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(errKeyfuncUnavailable, err)
		}
		key, err := v.Keyfunc(t)
		if err != nil {
			return nil, errors.Join(errKeyfuncUnavailable, err)
		}
		return key, nil
	}
}
