package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Mailer sends two-factor codes over a JSON mail-delivery API.
type Mailer struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewMailer returns a mailer using the given API key, endpoint and sender address.
func NewMailer(apiKey, baseURL, from string) *Mailer {
	return &Mailer{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send delivers the code to the given address. Does not log the code.
func (m *Mailer) Send(ctx context.Context, to, code string) error {
	if m.APIKey == "" {
		return fmt.Errorf("email: API key not configured")
	}
	if m.BaseURL == "" {
		return fmt.Errorf("email: base URL not configured")
	}
	body := map[string]interface{}{
		"from":    m.From,
		"to":      to,
		"subject": "Your verification code",
		"text":    fmt.Sprintf("Your verification code is %s. It expires shortly; do not share it.", code),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
