// Package mailchannels converts generic email messages into MailChannels
// send requests and submits them over HTTP.
package mailchannels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sungwon/mailchannels-relay/internal/email"
)

// DefaultEndpoint is the MailChannels transactional send API.
const DefaultEndpoint = "https://api.mailchannels.net/tx/v1/send"

// DKIMConfig holds the optional domain-signing credentials.
type DKIMConfig struct {
	Domain     string
	Selector   string
	PrivateKey string
}

// Complete reports whether all three DKIM settings are present. Partial
// settings disable signing.
func (c DKIMConfig) Complete() bool {
	return c.Domain != "" && c.Selector != "" && c.PrivateKey != ""
}

// Config holds configuration for a Client.
type Config struct {
	// Endpoint overrides DefaultEndpoint (useful for testing).
	Endpoint string
	DKIM     DKIMConfig
}

// Client sends email through the MailChannels API. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	endpoint string
	dkim     DKIMConfig
	http     HTTPClient
}

// NewClient creates a Client from cfg using the given HTTP client.
func NewClient(cfg Config, client HTTPClient) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		dkim:     cfg.DKIM,
		http:     client,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "mailchannels" }

// Signing reports whether outgoing messages are DKIM signed.
func (c *Client) Signing() bool { return c.dkim.Complete() }

// Send delivers e in a single POST. A 2xx response is success. Any other
// status returns a *DeliveryError; a request that never completes returns the
// transport error wrapped.
func (c *Client) Send(ctx context.Context, e *email.Email) error {
	msg := c.BuildMessage(e)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mailchannels: marshal request: %w", err)
	}

	resp, err := c.http.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    c.endpoint,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("mailchannels: send request: %w", err)
	}

	if de := classifyStatus(resp.StatusCode, resp.StatusText, string(resp.Body)); de != nil {
		return de
	}
	return nil
}

// BuildMessage transforms e and applies the client's DKIM settings.
func (c *Client) BuildMessage(e *email.Email) *Message {
	msg := Transform(e)
	if c.dkim.Complete() {
		p := &msg.Personalizations[0]
		p.DKIMDomain = c.dkim.Domain
		p.DKIMSelector = c.dkim.Selector
		p.DKIMPrivateKey = c.dkim.PrivateKey
	}
	return msg
}
