package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Postal delivery states that mean the message will not arrive.
const (
	StatusHardFail = "HardFail"
	StatusHeld     = "Held"
)

// PostalClient talks to a Postal server's HTTP API.
type PostalClient struct {
	baseURL string
	key     string
	http    *http.Client
}

func NewPostalClient(baseURL, key string, client *http.Client) *PostalClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PostalClient{baseURL: strings.TrimSuffix(baseURL, "/"), key: key, http: client}
}

type postalSendRequest struct {
	To       []string `json:"to"`
	From     string   `json:"from"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	HTMLBody string   `json:"html_body"`
}

type postalSendResponse struct {
	Status string `json:"status"`
	Data   struct {
		Messages map[string]struct {
			ID json.Number `json:"id"`
		} `json:"messages"`
	} `json:"data"`
}

// Send submits m and returns Postal's id for the message to m.To.
func (c *PostalClient) Send(ctx context.Context, m Message) (string, error) {
	var resp postalSendResponse
	err := c.post(ctx, "/api/v1/send/message", postalSendRequest{
		To:       []string{m.To},
		From:     m.From,
		Sender:   m.From,
		Subject:  m.Subject,
		HTMLBody: m.HTML,
	}, &resp)
	if err != nil {
		return "", err
	}
	msg, ok := resp.Data.Messages[m.To]
	if !ok || msg.ID == "" {
		return "", fmt.Errorf("postal send: no message id for recipient (status %q)", resp.Status)
	}
	return msg.ID.String(), nil
}

type postalDeliveriesResponse struct {
	Data []struct {
		Status string `json:"status"`
	} `json:"data"`
}

// DeliveryStatus returns the most recent delivery status Postal recorded for
// the message, or "" when it has made no delivery attempt yet.
func (c *PostalClient) DeliveryStatus(ctx context.Context, messageID string) (string, error) {
	var resp postalDeliveriesResponse
	err := c.post(ctx, "/api/v1/messages/deliveries", map[string]json.Number{"id": json.Number(messageID)}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].Status, nil
}

func (c *PostalClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("postal %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("postal %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-API-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("postal %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("postal %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("postal %s: decode: %w", path, err)
	}
	return nil
}
