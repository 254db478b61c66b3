// Package sms sends text messages through the Textware HTTP gateway.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config carries the gateway settings.
type Config struct {
	// APIURL is the send endpoint, e.g.
	// https://cloud.textware.lk:5001/sms/send_sms.php.
	APIURL   string
	Username string
	Password string
	// Sender is the source address shown to the recipient.
	Sender string
	// HTTPClient overrides the default client (primarily for tests).
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client sends messages through one gateway account.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("sms: API URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("sms: gateway credentials are required")
	}
	if cfg.Sender == "" {
		cfg.Sender = "GSMB"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

// Send delivers one message. The gateway takes everything as query
// parameters on a GET request.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	q := url.Values{
		"username": {c.cfg.Username},
		"password": {c.cfg.Password},
		"src":      {c.cfg.Sender},
		"dst":      {phone},
		"msg":      {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("sms: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to send message: %s", string(body))
	}
	return nil
}
