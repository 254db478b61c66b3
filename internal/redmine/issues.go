package redmine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Filter narrows an issue listing. The zero value lists everything the API
// key can see.
type Filter struct {
	ProjectID    int
	ProjectSlug  string // when set, lists via /projects/{slug}/issues.json
	TrackerID    int
	StatusID     string // "7", "!7", "open", "closed" or "*"
	AssignedToID int
	AuthorID     int
	// Fields filters on custom field values, keyed by field id (cf_<id>).
	Fields map[int]string
	// Include asks Redmine for associated data, e.g. "attachments".
	Include string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.ProjectID != 0 {
		q.Set("project_id", strconv.Itoa(f.ProjectID))
	}
	if f.TrackerID != 0 {
		q.Set("tracker_id", strconv.Itoa(f.TrackerID))
	}
	if f.StatusID != "" {
		q.Set("status_id", f.StatusID)
	}
	if f.AssignedToID != 0 {
		q.Set("assigned_to_id", strconv.Itoa(f.AssignedToID))
	}
	if f.AuthorID != 0 {
		q.Set("author_id", strconv.Itoa(f.AuthorID))
	}
	for id, value := range f.Fields {
		q.Set("cf_"+strconv.Itoa(id), value)
	}
	if f.Include != "" {
		q.Set("include", f.Include)
	}
	return q
}

func (f Filter) path() string {
	if f.ProjectSlug != "" {
		return "/projects/" + url.PathEscape(f.ProjectSlug) + "/issues.json"
	}
	return "/issues.json"
}

// IssuePage is one page of an issue listing.
type IssuePage struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

// ListIssues fetches a single page. A limit of 0 leaves the page size to the
// server (Redmine defaults to 25).
func (c *Client) ListIssues(ctx context.Context, apiKey string, f Filter, offset, limit int) (*IssuePage, error) {
	q := f.query()
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var page IssuePage
	if err := c.doJSON(ctx, apiKey, http.MethodGet, f.path(), q, nil, &page, "failed to fetch issues"); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllIssues walks every page of the listing. Iteration stops when a page
// comes back empty, shorter than the requested limit, or once the reported
// total has been covered.
func (c *Client) ListAllIssues(ctx context.Context, apiKey string, f Filter) ([]Issue, error) {
	var all []Issue
	offset := 0
	for {
		page, err := c.ListIssues(ctx, apiKey, f, offset, c.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page.Issues) == 0 {
			break
		}
		all = append(all, page.Issues...)
		offset += len(page.Issues)
		if len(page.Issues) < c.pageSize || offset >= page.TotalCount {
			break
		}
	}
	return all, nil
}

// GetIssue fetches one issue. include may be "" or e.g. "attachments".
func (c *Client) GetIssue(ctx context.Context, apiKey string, id int, include string) (*Issue, error) {
	q := url.Values{}
	if include != "" {
		q.Set("include", include)
	}
	var out struct {
		Issue Issue `json:"issue"`
	}
	op := fmt.Sprintf("failed to fetch issue %d", id)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, "/issues/"+strconv.Itoa(id)+".json", q, nil, &out, op); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// CreateIssue posts a new issue and returns it with its server-assigned id.
func (c *Client) CreateIssue(ctx context.Context, apiKey string, issue NewIssue) (*Issue, error) {
	var out struct {
		Issue Issue `json:"issue"`
	}
	body := map[string]NewIssue{"issue": issue}
	if err := c.doJSON(ctx, apiKey, http.MethodPost, "/issues.json", nil, body, &out, "failed to create issue"); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// UpdateIssue applies a partial update. Redmine answers 204 on success.
func (c *Client) UpdateIssue(ctx context.Context, apiKey string, id int, update IssueUpdate) error {
	body := map[string]IssueUpdate{"issue": update}
	op := fmt.Sprintf("failed to update issue %d", id)
	return c.doJSON(ctx, apiKey, http.MethodPut, "/issues/"+strconv.Itoa(id)+".json", nil, body, nil, op)
}
