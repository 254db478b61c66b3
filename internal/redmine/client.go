// Package redmine is a thin client for the Redmine REST API. Redmine is the
// system of record: mining licenses, transport permits, complaints and
// appointments are all issues in one project, distinguished by tracker id.
//
// Every read or write is performed with the calling user's API key so that
// Redmine's own permissions apply; the admin key is reserved for account
// management and public (unauthenticated) flows.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmpro-lk/gsmb-backend/internal/metrics"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPageSize     = 100
	defaultMaxBodyBytes = 10 << 20

	headerAPIKey = "X-Redmine-API-Key"
)

// Config carries the settings required to construct a Client.
type Config struct {
	// BaseURL is the Redmine root, e.g. https://gsmb.example.lk.
	BaseURL string
	// AdminAPIKey authorizes account management and public flows.
	AdminAPIKey string
	// HTTPClient overrides the default client (primarily for tests).
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
	// PageSize is the limit used by exhaustive listings.
	PageSize int
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64
}

// Client talks to one Redmine instance.
type Client struct {
	baseURL      string
	adminKey     string
	httpClient   *http.Client
	pageSize     int
	maxBodyBytes int64
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.AdminAPIKey == "" {
		return nil, errors.New("redmine: base URL or API key is missing")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("redmine: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("redmine: base URL %q must include scheme and host", cfg.BaseURL)
	}
	if u.User != nil {
		return nil, fmt.Errorf("redmine: base URL %q must not carry userinfo", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		adminKey:     cfg.AdminAPIKey,
		httpClient:   httpClient,
		pageSize:     pageSize,
		maxBodyBytes: maxBody,
	}, nil
}

// AdminKey returns the administrative API key for flows that act on behalf
// of the system rather than a signed-in user.
func (c *Client) AdminKey() string { return c.adminKey }

// apiError is returned for non-2xx Redmine responses.
type apiError struct {
	Op     string
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %d - %s", e.Op, e.Status, e.Body)
}

// StatusCode extracts the Redmine HTTP status from err, or 0.
func StatusCode(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsNotFound reports whether err is a Redmine 404.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

func (c *Client) newRequest(ctx context.Context, apiKey, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("redmine: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("redmine: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerAPIKey, apiKey)
	return req, nil
}

// doJSON performs the request and decodes a JSON response into out (which may
// be nil for writes whose body is irrelevant). A response status outside the
// 2xx range becomes an *apiError carrying op, status and truncated body.
func (c *Client) doJSON(ctx context.Context, apiKey, method, path string, query url.Values, body, out any, op string) (err error) {
	defer func() { metrics.RecordRedmineCall(method+" "+metricPath(path), err) }()

	req, err := c.newRequest(ctx, apiKey, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{Op: op, Status: resp.StatusCode, Body: truncate(data, 512)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// metricPath collapses record ids so every call to the same endpoint shares
// one metric label.
func metricPath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		name := strings.TrimSuffix(seg, ".json")
		if name == "" {
			continue
		}
		if _, err := strconv.Atoi(name); err == nil {
			segments[i] = strings.Replace(seg, name, "{id}", 1)
		}
	}
	return strings.Join(segments, "/")
}

func truncate(data []byte, n int) string {
	s := strings.TrimSpace(string(data))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
