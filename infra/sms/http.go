package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	coresms "github.com/resqlink/resqlink/core/sms"
	"github.com/resqlink/resqlink/infra/logger"
)

// Config defines the connection parameters of the SMS gateway.
type Config struct {
	// URL is the gateway send endpoint.
	URL string `json:"url"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key"`
	// TimeoutSeconds bounds one gateway request.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("sms gateway url is required")
	}
	return nil
}

// HTTPGateway delivers messages through an HTTP SMS gateway with a JSON API.
type HTTPGateway struct {
	url    string
	apiKey string
	client *http.Client
	log    logger.Logger
}

// NewHTTPGateway creates a gateway client from the configuration.
func NewHTTPGateway(cfg Config) (*HTTPGateway, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HTTPGateway{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    logger.New("sms-gateway"),
	}, nil
}

type sendRequest struct {
	To        string   `json:"to"`
	Text      string   `json:"text,omitempty"`
	Parts     []string `json:"parts,omitempty"`
	Multipart bool     `json:"multipart,omitempty"`
}

// Send delivers a single-segment message.
func (g *HTTPGateway) Send(ctx context.Context, phone, text string) error {
	if phone == "" {
		return coresms.ErrNoRecipient
	}
	return g.post(ctx, sendRequest{To: phone, Text: text})
}

// SendMultipart delivers a message split into segments using the gateway's
// multipart endpoint. The gateway reports failure if any segment could not
// be delivered.
func (g *HTTPGateway) SendMultipart(ctx context.Context, phone string, parts []string) error {
	if phone == "" {
		return coresms.ErrNoRecipient
	}
	return g.post(ctx, sendRequest{To: phone, Parts: parts, Multipart: true})
}

func (g *HTTPGateway) post(ctx context.Context, body sendRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warnf("gateway returned %d for %s", resp.StatusCode, body.To)
		return fmt.Errorf("sms gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}
