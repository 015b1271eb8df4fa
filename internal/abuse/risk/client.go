package risk

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

// Client calls a reCAPTCHA-style risk-assessment API: it submits the
// caller-supplied assessment token and gets back a score in [0, 1],
// higher meaning more likely human.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns an assessment client for the given endpoint.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type assessRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type assessResponse struct {
	Score float64 `json:"score"`
}

// Assess submits token for scoring under the given platform policy.
func (c *Client) Assess(ctx context.Context, token, platform string) (float64, error) {
	if c.BaseURL == "" {
		return 0, fmt.Errorf("risk: assessment URL not configured")
	}
	raw, err := json.Marshal(assessRequest{Token: token, Platform: platform})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("risk: assessment failed status=%d body=%s", resp.StatusCode, string(b))
	}
	var out assessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("risk: decode assessment: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("risk: score %v out of range", out.Score)
	}
	return out.Score, nil
}
