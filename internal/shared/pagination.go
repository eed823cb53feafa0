package shared

import "strconv"

// Pagination contains metadata for paginated listings. Page is 1-based for
// display; the backend counts from zero.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
}

// NewPagination converts a backend page envelope (0-based number) into
// display metadata.
func NewPagination(number, size int, total int64, totalPages int) Pagination {
	if size <= 0 {
		size = 10
	}
	if number < 0 {
		number = 0
	}
	if totalPages < 0 {
		totalPages = 0
	}
	return Pagination{Page: number + 1, PerPage: size, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Prev returns the previous 1-based page.
func (p Pagination) Prev() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// Next returns the next 1-based page.
func (p Pagination) Next() int { return p.Page + 1 }

// PageParam converts a 1-based ?page= value to the backend's 0-based index.
func PageParam(raw int) int {
	if raw < 1 {
		return 0
	}
	return raw - 1
}

// PageQuery parses the raw ?page= value; junk reads as the first page.
func PageQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return PageParam(n)
}
