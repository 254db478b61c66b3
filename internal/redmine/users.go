package redmine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// User account statuses as Redmine encodes them.
const (
	UserStatusActive = 1
	UserStatusLocked = 3
)

// GetUser fetches one account with its custom fields.
func (c *Client) GetUser(ctx context.Context, apiKey string, id int) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	op := fmt.Sprintf("failed to fetch user %d", id)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, "/users/"+strconv.Itoa(id)+".json", nil, nil, &out, op); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login verifies Redmine credentials via basic auth and returns the account
// including its api_key, which callers exchange for a session token.
func (c *Client) Login(ctx context.Context, login, password string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/current.json", nil)
	if err != nil {
		return nil, fmt.Errorf("redmine: create request: %w", err)
	}
	req.SetBasicAuth(login, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{Op: "failed to authenticate", Status: resp.StatusCode, Body: truncate(data, 512)}
	}
	var out struct {
		User User `json:"user"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to authenticate: decode response: %w", err)
	}
	return &out.User, nil
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Status int    // 0 means any status Redmine defaults to
	Name   string // matches login, name and mail
}

// ListUsers fetches accounts via the admin-only /users.json endpoint, walking
// every page.
func (c *Client) ListUsers(ctx context.Context, apiKey string, f UserFilter) ([]User, error) {
	var all []User
	offset := 0
	for {
		q := url.Values{}
		if f.Status != 0 {
			q.Set("status", strconv.Itoa(f.Status))
		}
		if f.Name != "" {
			q.Set("name", f.Name)
		}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(c.pageSize))

		var page struct {
			Users      []User `json:"users"`
			TotalCount int    `json:"total_count"`
		}
		if err := c.doJSON(ctx, apiKey, http.MethodGet, "/users.json", q, nil, &page, "failed to fetch users"); err != nil {
			return nil, err
		}
		if len(page.Users) == 0 {
			break
		}
		all = append(all, page.Users...)
		offset += len(page.Users)
		if len(page.Users) < c.pageSize || offset >= page.TotalCount {
			break
		}
	}
	return all, nil
}

// UserUpdate is the payload for PUT /users/{id}.json.
type UserUpdate struct {
	Status       int          `json:"status,omitempty"`
	Password     string       `json:"password,omitempty"`
	CustomFields []FieldValue `json:"custom_fields,omitempty"`
}

// UpdateUser applies a partial account update. Requires the admin key.
func (c *Client) UpdateUser(ctx context.Context, apiKey string, id int, update UserUpdate) error {
	body := map[string]UserUpdate{"user": update}
	op := fmt.Sprintf("failed to update user %d", id)
	return c.doJSON(ctx, apiKey, http.MethodPut, "/users/"+strconv.Itoa(id)+".json", nil, body, nil, op)
}
