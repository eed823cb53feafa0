package audithttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/salesdesk/salesdesk/internal/audit"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/view"
)

const (
	dateLayout       = "2006-01-02"
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// TimelineService is what the handler needs from audit.Service.
type TimelineService interface {
	Enabled() bool
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

var actionLabels = map[string]string{
	"create": "Tạo mới",
	"update": "Cập nhật",
	"delete": "Xóa",
	"toggle": "Khóa/Mở khóa",
	"cancel": "Hủy",
	"adjust": "Điều chỉnh",
}

var entityLabels = map[string]string{
	"product":  "Sản phẩm",
	"category": "Danh mục",
	"supplier": "Nhà cung cấp",
	"customer": "Khách hàng",
	"order":    "Đơn hàng",
	"receipt":  "Phiếu nhập",
	"user":     "Nhân viên",
}

// Handler serves the activity log to administrators.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	pages   *view.Responder
	rbac    rbac.Middleware
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds the activity log screens. Dates are read and shown in loc.
func NewHandler(logger *slog.Logger, service TimelineService, pages *view.Responder, rbacMW rbac.Middleware, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, pages: pages, rbac: rbacMW, loc: loc, now: time.Now}
}

type rowView struct {
	audit.TimelineRow
	ActionLabel string
	EntityLabel string
	Details     string
}

type filterView struct {
	From   string
	To     string
	Actor  string
	Entity string
	Action string
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Enabled":  h.service != nil && h.service.Enabled(),
		"Actions":  actionLabels,
		"Entities": entityLabels,
	}
	filters, fv, err := h.parseFilters(r)
	data["Filters"] = fv
	if err != nil {
		data["LoadError"] = err.Error()
		h.pages.Render(w, r, "pages/audit/timeline.html", "Nhật ký thao tác", data, http.StatusBadRequest)
		return
	}
	if !data["Enabled"].(bool) {
		h.pages.Render(w, r, "pages/audit/timeline.html", "Nhật ký thao tác", data, http.StatusOK)
		return
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		data["LoadError"] = "Không thể tải nhật ký thao tác"
	} else {
		rows := make([]rowView, 0, len(result.Rows))
		for _, row := range result.Rows {
			rows = append(rows, h.viewRow(row))
		}
		data["Rows"] = rows
		data["Paging"] = result.Paging
		if p := result.Paging.PrevPage; p > 0 {
			data["PrevURL"] = "/audit?" + fv.query(p)
		}
		if p := result.Paging.NextPage; p > 0 {
			data["NextURL"] = "/audit?" + fv.query(p)
		}
	}
	data["ExportURL"] = "/audit/export.csv?" + fv.query(0)
	h.pages.Render(w, r, "pages/audit/timeline.html", "Nhật ký thao tác", data, http.StatusOK)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || !h.service.Enabled() {
		http.Error(w, "Nhật ký thao tác chưa được bật", http.StatusNotImplemented)
		return
	}
	filters, _, err := h.parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nhat-ky-thao-tac.csv"`)
	if err := audit.WriteCSV(w, rows, h.loc); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) viewRow(row audit.TimelineRow) rowView {
	row.At = row.At.In(h.loc)
	v := rowView{TimelineRow: row, ActionLabel: row.Action, EntityLabel: row.Entity}
	if l, ok := actionLabels[row.Action]; ok {
		v.ActionLabel = l
	}
	if l, ok := entityLabels[row.Entity]; ok {
		v.EntityLabel = l
	}
	if len(row.Meta) > 0 {
		parts := make([]string, 0, len(row.Meta))
		for k, val := range row.Meta {
			raw, err := json.Marshal(val)
			if err != nil {
				continue
			}
			parts = append(parts, k+"="+strings.Trim(string(raw), `"`))
		}
		sort.Strings(parts)
		v.Details = strings.Join(parts, ", ")
	}
	return v
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, filterView, error) {
	q := r.URL.Query()
	fv := filterView{
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
		Actor:  strings.TrimSpace(q.Get("actor")),
		Entity: strings.TrimSpace(q.Get("entity")),
		Action: strings.TrimSpace(q.Get("action")),
	}
	today := h.now().In(h.loc)
	if fv.To == "" {
		fv.To = today.Format(dateLayout)
	}
	to, err := time.ParseInLocation(dateLayout, fv.To, h.loc)
	if err != nil {
		return audit.TimelineFilters{}, fv, errors.New("Ngày kết thúc không hợp lệ")
	}
	if fv.From == "" {
		fv.From = to.Add(-defaultDateRange).Format(dateLayout)
	}
	from, err := time.ParseInLocation(dateLayout, fv.From, h.loc)
	if err != nil {
		return audit.TimelineFilters{}, fv, errors.New("Ngày bắt đầu không hợp lệ")
	}
	if from.After(to) {
		return audit.TimelineFilters{}, fv, errors.New("Ngày bắt đầu phải trước ngày kết thúc")
	}
	if to.Sub(from) > maxDateRange {
		return audit.TimelineFilters{}, fv, errors.New("Chỉ xem được tối đa 90 ngày")
	}
	page := 1
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	return audit.TimelineFilters{
		From:     from,
		To:       to,
		Actor:    fv.Actor,
		Entity:   fv.Entity,
		Action:   fv.Action,
		Page:     page,
		PageSize: audit.DefaultPageSize,
	}, fv, nil
}

// query encodes the filters for pagination and export links. page 0 is left out.
func (f filterView) query(page int) string {
	v := url.Values{}
	for k, val := range map[string]string{"from": f.From, "to": f.To, "actor": f.Actor, "entity": f.Entity, "action": f.Action} {
		if val != "" {
			v.Set(k, val)
		}
	}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	return v.Encode()
}
