package providers

import (
	"context"
	"net/http"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
)

type googleUser struct {
	ID            string `json:"id"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// GoogleValidator validates Google access tokens against the userinfo endpoint.
type GoogleValidator struct {
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewGoogleValidator returns a validator for Google access tokens.
// userInfoURL may be empty to use the public endpoint.
func NewGoogleValidator(userInfoURL string, client *http.Client) *GoogleValidator {
	if userInfoURL == "" {
		userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	}
	return &GoogleValidator{UserInfoURL: userInfoURL, HTTPClient: httpClientOrDefault(client)}
}

func (v *GoogleValidator) Provider() identitydomain.Provider { return identitydomain.ProviderGoogle }

// Validate exchanges the access token for Google subject claims.
func (v *GoogleValidator) Validate(ctx context.Context, token string) (*oauth.Claims, error) {
	var u googleUser
	if err := fetchUserInfo(ctx, v.HTTPClient, v.UserInfoURL, token, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, oauth.ErrInvalidToken
	}
	return &oauth.Claims{
		SubjectID:     u.ID,
		FirstName:     u.GivenName,
		LastName:      u.FamilyName,
		Email:         u.Email,
		EmailVerified: u.VerifiedEmail,
		PictureURL:    u.Picture,
	}, nil
}
