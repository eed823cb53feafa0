package audit

import "time"

// TimelineFilters narrows the activity log. From is inclusive, To is the
// last day shown.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded console action.
type TimelineRow struct {
	At       time.Time
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
}

// PagingInfo describes a page of the log without counting every row.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
}

// Result is one page of the log.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}
