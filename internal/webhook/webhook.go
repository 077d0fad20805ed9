// Package webhook posts embed-style messages to chat webhooks.
//
// Every Send is a single attempt. Callers log failures and move on; nothing
// is retried or queued.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hatch/internal/platform/metrics"
	"hatch/pkg/platform/circuit"
)

// ErrCircuitOpen is returned without a network call while the endpoint is
// considered down.
var ErrCircuitOpen = errors.New("webhook: circuit open")

type Embed struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Single is a message carrying one embed.
func Single(e Embed) Message {
	return Message{Embeds: []Embed{e}}
}

type Client struct {
	url     string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client for url. name identifies the webhook in logs.
func New(name, url string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		url:     url,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New(name, circuit.WithCooldown(time.Minute)),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.breaker.Allow() {
		c.metrics.IncWebhookSend("skipped")
		return ErrCircuitOpen
	}

	err := c.post(ctx, msg)
	if err != nil {
		c.metrics.IncWebhookSend("failure")
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "webhook circuit opened", "webhook", c.breaker.Name(), "error", err)
		}
		return err
	}

	c.metrics.IncWebhookSend("success")
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "webhook circuit closed", "webhook", c.breaker.Name())
	}
	return nil
}

func (c *Client) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode webhook message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
