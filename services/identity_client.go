package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// IdentityProvider delivers and checks one-time email codes.
type IdentityProvider interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, token string) (bool, error)
}

// SupabaseClient talks to a Supabase GoTrue auth endpoint with the
// service role key.
type SupabaseClient struct {
	BaseURL    string
	APIKey     string
	RedirectTo string
	Client     *http.Client
}

func NewSupabaseClient(baseURL, apiKey, redirectTo string, client *http.Client) *SupabaseClient {
	return &SupabaseClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		RedirectTo: redirectTo,
		Client:     client,
	}
}

// SendOTP calls POST /auth/v1/otp, creating the auth user if needed.
func (c *SupabaseClient) SendOTP(ctx context.Context, email string) error {
	endpoint := fmt.Sprintf("%s/auth/v1/otp", c.BaseURL)
	if c.RedirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(c.RedirectTo)
	}
	_, err := c.post(ctx, endpoint, map[string]interface{}{
		"email":       email,
		"create_user": true,
	})
	return err
}

// VerifyOTP calls POST /auth/v1/verify and reports whether a user was
// returned for the code.
func (c *SupabaseClient) VerifyOTP(ctx context.Context, email, token string) (bool, error) {
	body, err := c.post(ctx, fmt.Sprintf("%s/auth/v1/verify", c.BaseURL), map[string]interface{}{
		"type":  "email",
		"email": email,
		"token": token,
	})
	if err != nil {
		return false, err
	}

	var out struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return out.User != nil && out.User.ID != "", nil
}

func (c *SupabaseClient) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
