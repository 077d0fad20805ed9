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

const resendEndpoint = "https://api.resend.com/emails"

// ResendClient sends through Resend's single-call API.
type ResendClient struct {
	endpoint string
	key      string
	http     *http.Client
}

type ResendOption func(*ResendClient)

// WithResendEndpoint overrides the API URL.
func WithResendEndpoint(url string) ResendOption {
	return func(c *ResendClient) {
		c.endpoint = url
	}
}

func NewResendClient(key string, client *http.Client, opts ...ResendOption) *ResendClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	c := &ResendClient{endpoint: resendEndpoint, key: key, http: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send succeeds when Resend answers with a message id.
func (c *ResendClient) Send(ctx context.Context, m Message) error {
	payload, err := json.Marshal(resendRequest{From: m.From, To: []string{m.To}, Subject: m.Subject, HTML: m.HTML})
	if err != nil {
		return fmt.Errorf("resend: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("resend: status %d: decode: %w", resp.StatusCode, err)
	}
	if out.ID == "" {
		return fmt.Errorf("resend: status %d: no message id", resp.StatusCode)
	}
	return nil
}
