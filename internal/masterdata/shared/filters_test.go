package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilters(t *testing.T) {
	r := httptest.NewRequest("GET", "/products?page=3&search=+%C3%A1o+&category=4", nil)
	f := ParseFilters(r)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, "áo", f.Search)
	assert.Equal(t, int64(4), f.CategoryID)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, "&category=4&search=%C3%A1o", string(f.Query()))
}

func TestParseFiltersJunk(t *testing.T) {
	f := ParseFilters(httptest.NewRequest("GET", "/products?page=x&category=-1", nil))
	assert.Equal(t, 0, f.Page)
	assert.Zero(t, f.CategoryID)
	assert.Empty(t, string(f.Query()))
}
