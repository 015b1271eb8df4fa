// Package providers contains one validator adapter per OAuth provider.
// Google, Facebook, and LinkedIn exchange the access token against the
// provider's userinfo endpoint; Apple verifies the identity token locally.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
)

const defaultTimeout = 15 * time.Second

// fetchUserInfo performs a bearer-authenticated GET against url and decodes
// the JSON body into out. Provider 4xx responses map to ErrInvalidToken;
// transport errors and 5xx responses map to ErrProviderUnavailable.
func fetchUserInfo(ctx context.Context, client *http.Client, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", oauth.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status=%d", oauth.ErrInvalidToken, resp.StatusCode)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status=%d body=%s", oauth.ErrProviderUnavailable, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", oauth.ErrProviderUnavailable, err)
	}
	return nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}
