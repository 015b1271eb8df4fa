package providers

import (
	"context"
	"net/http"
	"net/url"

	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
)

type facebookUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FacebookValidator validates Facebook access tokens against the Graph API.
type FacebookValidator struct {
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewFacebookValidator returns a validator for Facebook access tokens.
// userInfoURL may be empty to use the public Graph endpoint.
func NewFacebookValidator(userInfoURL string, client *http.Client) *FacebookValidator {
	if userInfoURL == "" {
		userInfoURL = "https://graph.facebook.com/v17.0/me"
	}
	return &FacebookValidator{UserInfoURL: userInfoURL, HTTPClient: httpClientOrDefault(client)}
}

func (v *FacebookValidator) Provider() identitydomain.Provider {
	return identitydomain.ProviderFacebook
}

// Validate exchanges the access token for Facebook subject claims.
// Facebook does not expose an email-verified flag; emails it returns are
// considered verified.
func (v *FacebookValidator) Validate(ctx context.Context, token string) (*oauth.Claims, error) {
	u, err := url.Parse(v.UserInfoURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("fields", "id,first_name,last_name,email,picture.type(large)")
	u.RawQuery = q.Encode()

	var fb facebookUser
	if err := fetchUserInfo(ctx, v.HTTPClient, u.String(), token, &fb); err != nil {
		return nil, err
	}
	if fb.ID == "" {
		return nil, oauth.ErrInvalidToken
	}
	return &oauth.Claims{
		SubjectID:     fb.ID,
		FirstName:     fb.FirstName,
		LastName:      fb.LastName,
		Email:         fb.Email,
		EmailVerified: fb.Email != "",
		PictureURL:    fb.Picture.Data.URL,
	}, nil
}
