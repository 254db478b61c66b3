package redmine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Ref is a Redmine object reference (project, tracker, status, user, priority).
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// CustomField is one entry of an issue's or user's custom_fields array. Values
// are strings on the wire; numeric semantics are inferred by callers.
type CustomField struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// UnmarshalJSON tolerates non-string values (numbers, booleans, null) that
// Redmine emits for some field formats, normalizing them to strings.
func (f *CustomField) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    int             `json:"id"`
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = raw.ID
	f.Name = raw.Name
	f.Value = ""
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Value, &s); err == nil {
		f.Value = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw.Value, &n); err == nil {
		f.Value = strconv.FormatFloat(n, 'f', -1, 64)
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw.Value, &b); err == nil {
		f.Value = strconv.FormatBool(b)
		return nil
	}
	return nil
}

// Issue is a generic Redmine issue. Every business object (mining license,
// transport permit, complaint, appointment) is one of these, selected by
// tracker id.
type Issue struct {
	ID             int          `json:"id"`
	Project        Ref          `json:"project"`
	Tracker        Ref          `json:"tracker"`
	Status         Ref          `json:"status"`
	Priority       Ref          `json:"priority"`
	Author         Ref          `json:"author"`
	AssignedTo     *Ref         `json:"assigned_to,omitempty"`
	Subject        string       `json:"subject"`
	Description    string       `json:"description,omitempty"`
	StartDate      string       `json:"start_date,omitempty"`
	DueDate        string       `json:"due_date,omitempty"`
	EstimatedHours float64      `json:"estimated_hours,omitempty"`
	CreatedOn      string       `json:"created_on,omitempty"`
	UpdatedOn      string       `json:"updated_on,omitempty"`
	CustomFields   CustomFields `json:"custom_fields,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

const timestampLayout = "2006-01-02T15:04:05Z"

// CreatedAt parses the issue creation timestamp (UTC).
func (i Issue) CreatedAt() (time.Time, error) {
	return time.Parse(timestampLayout, i.CreatedOn)
}

// AssigneeName returns the assignee display name, or "" when unassigned.
func (i Issue) AssigneeName() string {
	if i.AssignedTo == nil {
		return ""
	}
	return i.AssignedTo.Name
}

// AssigneeID returns the assignee user id, or 0 when unassigned.
func (i Issue) AssigneeID() int {
	if i.AssignedTo == nil {
		return 0
	}
	return i.AssignedTo.ID
}

// FieldValue sets one custom field on a create or update payload.
type FieldValue struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// NewIssue is the payload for POST /issues.json.
type NewIssue struct {
	ProjectID      int          `json:"project_id"`
	TrackerID      int          `json:"tracker_id,omitempty"`
	StatusID       int          `json:"status_id,omitempty"`
	PriorityID     int          `json:"priority_id,omitempty"`
	AssignedToID   int          `json:"assigned_to_id,omitempty"`
	AuthorID       int          `json:"author_id,omitempty"`
	Subject        string       `json:"subject,omitempty"`
	Description    string       `json:"description,omitempty"`
	StartDate      string       `json:"start_date,omitempty"`
	DueDate        string       `json:"due_date,omitempty"`
	EstimatedHours float64      `json:"estimated_hours,omitempty"`
	CustomFields   []FieldValue `json:"custom_fields,omitempty"`
}

// IssueUpdate is the payload for PUT /issues/{id}.json. Zero-valued fields
// are omitted so an update touches only what the transition needs.
type IssueUpdate struct {
	StatusID     int          `json:"status_id,omitempty"`
	AssignedToID int          `json:"assigned_to_id,omitempty"`
	StartDate    string       `json:"start_date,omitempty"`
	DueDate      string       `json:"due_date,omitempty"`
	CustomFields []FieldValue `json:"custom_fields,omitempty"`
}

// User is a Redmine account. The "User Type" custom field is the role marker
// (mlOwner, gsmbOfficer, miningEngineer, police, ...).
type User struct {
	ID           int          `json:"id"`
	Login        string       `json:"login,omitempty"`
	Firstname    string       `json:"firstname"`
	Lastname     string       `json:"lastname"`
	Mail         string       `json:"mail"`
	Status       int          `json:"status,omitempty"`
	APIKey       string       `json:"api_key,omitempty"`
	CustomFields CustomFields `json:"custom_fields,omitempty"`
}

// FullName joins first and last name the way the front-ends display owners.
func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// Membership binds a user to project roles.
type Membership struct {
	ID    int   `json:"id"`
	User  Ref   `json:"user"`
	Roles []Ref `json:"roles"`
}

// HasRole reports whether the membership carries the named role.
func (m Membership) HasRole(name string) bool {
	for _, r := range m.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Attachment is the metadata returned by GET /attachments/{id}.json.
type Attachment struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	Filesize    int64  `json:"filesize,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	ContentURL  string `json:"content_url"`
}

// Upload is the token returned by POST /uploads.json to be referenced from a
// custom field or issue payload.
type Upload struct {
	ID    int    `json:"id"`
	Token string `json:"token"`
}
