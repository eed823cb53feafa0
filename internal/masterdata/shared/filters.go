// Package shared holds the list filters common to the catalogue screens.
package shared

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	internalShared "github.com/salesdesk/salesdesk/internal/shared"
)

// DefaultLimit is the page size requested from the backend.
const DefaultLimit = 10

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID int64
}

// ParseFilters reads ?page, ?search and ?category. Page is 0-based, the way
// the backend counts.
func ParseFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	f := ListFilters{
		Page:   internalShared.PageQuery(q.Get("page")),
		Limit:  DefaultLimit,
		Search: strings.TrimSpace(q.Get("search")),
	}
	if id, err := strconv.ParseInt(q.Get("category"), 10, 64); err == nil && id > 0 {
		f.CategoryID = id
	}
	return f
}

// Query renders the non-page filters as a query suffix for pagination links.
func (f ListFilters) Query() template.URL {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.CategoryID > 0 {
		v.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if len(v) == 0 {
		return ""
	}
	return template.URL("&" + v.Encode())
}
