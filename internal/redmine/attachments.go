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

// GetAttachment fetches attachment metadata, including its content URL.
func (c *Client) GetAttachment(ctx context.Context, apiKey string, id int) (*Attachment, error) {
	var out struct {
		Attachment Attachment `json:"attachment"`
	}
	op := fmt.Sprintf("failed to fetch attachment %d", id)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, "/attachments/"+strconv.Itoa(id)+".json", nil, nil, &out, op); err != nil {
		return nil, err
	}
	return &out.Attachment, nil
}

// AttachmentURLs resolves attachment-format custom fields to download URLs.
// Resolution is best effort: a field that is empty, non-numeric, or whose
// metadata lookup fails simply maps to "" so a broken attachment never sinks
// the surrounding read.
func (c *Client) AttachmentURLs(ctx context.Context, apiKey string, fields CustomFields, names ...string) map[string]string {
	urls := make(map[string]string, len(names))
	for _, name := range names {
		urls[name] = ""
		id, ok := fields.AttachmentID(name)
		if !ok {
			continue
		}
		att, err := c.GetAttachment(ctx, apiKey, id)
		if err != nil {
			continue
		}
		urls[name] = att.ContentURL
	}
	return urls
}

// DownloadAttachment streams the attachment content. The caller owns the
// returned body and must close it.
func (c *Client) DownloadAttachment(ctx context.Context, apiKey string, id int, filename string) (io.ReadCloser, string, error) {
	path := "/attachments/download/" + strconv.Itoa(id)
	if filename != "" {
		path += "/" + url.PathEscape(filename)
	}
	req, err := c.newRequest(ctx, apiKey, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download attachment %d: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		resp.Body.Close()
		return nil, "", &apiError{Op: fmt.Sprintf("failed to download attachment %d", id), Status: resp.StatusCode, Body: truncate(data, 512)}
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// UploadFile sends raw file bytes to /uploads.json and returns the token to
// reference from an issue payload or attachment custom field.
func (c *Client) UploadFile(ctx context.Context, apiKey, filename string, content io.Reader) (*Upload, error) {
	q := url.Values{"filename": {filename}}
	u := c.baseURL + "/uploads.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, content)
	if err != nil {
		return nil, fmt.Errorf("redmine: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &apiError{Op: "failed to upload file", Status: resp.StatusCode, Body: truncate(data, 512)}
	}
	var out struct {
		Upload Upload `json:"upload"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to upload file: decode response: %w", err)
	}
	return &out.Upload, nil
}
