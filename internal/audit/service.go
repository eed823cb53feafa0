// Package audit reads back the console's activity log: who created, changed
// or deleted what through the console.
package audit

import (
	"context"
	"errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// MaxExportRows bounds a CSV export.
	MaxExportRows = 5000
)

// ErrNotConfigured is returned when no ledger database is attached.
var ErrNotConfigured = errors.New("audit: ledger not configured")

// Store is the storage the service reads from.
type Store interface {
	Timeline(ctx context.Context, q Query) ([]TimelineRow, error)
}

// Service pages and exports the activity log.
type Service struct {
	store Store
}

// NewService builds a Service. store may be nil when no ledger is configured.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Enabled reports whether a ledger is attached.
func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// Timeline returns one page of the log. One extra row is fetched to learn
// whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if !s.Enabled() {
		return Result{}, ErrNotConfigured
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q := baseQuery(filters)
	q.Offset = int32((page - 1) * pageSize)
	q.Limit = int32(pageSize + 1)

	rows, err := s.store.Timeline(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns up to MaxExportRows matching rows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	q := baseQuery(filters)
	q.Limit = MaxExportRows
	return s.store.Timeline(ctx, q)
}

func baseQuery(f TimelineFilters) Query {
	q := Query{
		From:   toPgTime(f.From),
		Actor:  optionalText(f.Actor),
		Entity: optionalText(f.Entity),
		Action: optionalText(f.Action),
	}
	if !f.To.IsZero() {
		// To names a day; include all of it.
		q.To = toPgTime(f.To.AddDate(0, 0, 1))
	}
	return q
}
