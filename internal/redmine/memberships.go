package redmine

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListMemberships fetches every user/role binding of a project.
func (c *Client) ListMemberships(ctx context.Context, apiKey, projectSlug string) ([]Membership, error) {
	path := "/projects/" + url.PathEscape(projectSlug) + "/memberships.json"
	var all []Membership
	offset := 0
	for {
		q := url.Values{
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(c.pageSize)},
		}
		var page struct {
			Memberships []Membership `json:"memberships"`
			TotalCount  int          `json:"total_count"`
		}
		if err := c.doJSON(ctx, apiKey, http.MethodGet, path, q, nil, &page, "failed to fetch memberships"); err != nil {
			return nil, err
		}
		if len(page.Memberships) == 0 {
			break
		}
		all = append(all, page.Memberships...)
		offset += len(page.Memberships)
		if len(page.Memberships) < c.pageSize || offset >= page.TotalCount {
			break
		}
	}
	return all, nil
}

// UsersWithRole returns the ids of members holding the named project role.
func UsersWithRole(memberships []Membership, role string) []int {
	var ids []int
	for _, m := range memberships {
		if m.HasRole(role) {
			ids = append(ids, m.User.ID)
		}
	}
	return ids
}
