package redmine

import (
	"strconv"
	"strings"
)

// CustomFields is the custom_fields array of an issue or user, with lookup
// helpers. Lookups by name must use the exact Redmine field name, including
// any trailing whitespace the administrator configured.
type CustomFields []CustomField

// Get returns the value of the named field, or "".
func (fs CustomFields) Get(name string) string {
	for _, f := range fs {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Has reports whether the named field is present, regardless of value.
func (fs CustomFields) Has(name string) bool {
	for _, f := range fs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// GetByID returns the value of the field with the given id, or "".
func (fs CustomFields) GetByID(id int) string {
	for _, f := range fs {
		if f.ID == id {
			return f.Value
		}
	}
	return ""
}

// StringOr returns the named field's value, or fallback when absent or empty.
func (fs CustomFields) StringOr(name, fallback string) string {
	if v := fs.Get(name); v != "" {
		return v
	}
	return fallback
}

// FloatOr parses the named field as a number. Absent, empty or malformed
// values yield fallback; quantities like royalty balances read as 0 rather
// than failing the request.
func (fs CustomFields) FloatOr(name string, fallback float64) float64 {
	v := strings.TrimSpace(fs.Get(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

// IntOr parses the named field as an integer, with the same tolerance as
// FloatOr. Values with a fractional part are truncated.
func (fs CustomFields) IntOr(name string, fallback int) int {
	v := strings.TrimSpace(fs.Get(name))
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return fallback
}

// ByName projects the fields into a name-keyed map, dropping blank values.
func (fs CustomFields) ByName() map[string]string {
	m := make(map[string]string, len(fs))
	for _, f := range fs {
		if f.Value != "" {
			m[f.Name] = f.Value
		}
	}
	return m
}

// AttachmentID interprets the named field as an attachment reference. Redmine
// stores attachment-format fields as the numeric attachment id; anything
// non-numeric (including empty) yields false.
func (fs CustomFields) AttachmentID(name string) (int, bool) {
	v := strings.TrimSpace(fs.Get(name))
	if v == "" {
		return 0, false
	}
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
