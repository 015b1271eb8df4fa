package providers

import (
	"context"
	"net/http"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
)

type linkedinUser struct {
	Sub           string `json:"sub"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// LinkedInValidator validates LinkedIn access tokens against the OIDC userinfo endpoint.
type LinkedInValidator struct {
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewLinkedInValidator returns a validator for LinkedIn access tokens.
// userInfoURL may be empty to use the public endpoint.
func NewLinkedInValidator(userInfoURL string, client *http.Client) *LinkedInValidator {
	if userInfoURL == "" {
		userInfoURL = "https://api.linkedin.com/v2/userinfo"
	}
	return &LinkedInValidator{UserInfoURL: userInfoURL, HTTPClient: httpClientOrDefault(client)}
}

func (v *LinkedInValidator) Provider() identitydomain.Provider {
	return identitydomain.ProviderLinkedIn
}

// Validate exchanges the access token for LinkedIn subject claims.
func (v *LinkedInValidator) Validate(ctx context.Context, token string) (*oauth.Claims, error) {
	var u linkedinUser
	if err := fetchUserInfo(ctx, v.HTTPClient, v.UserInfoURL, token, &u); err != nil {
		return nil, err
	}
	if u.Sub == "" {
		return nil, oauth.ErrInvalidToken
	}
	return &oauth.Claims{
		SubjectID:     u.Sub,
		FirstName:     u.GivenName,
		LastName:      u.FamilyName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		PictureURL:    u.Picture,
	}, nil
}
