package dashboard

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/view"
	"github.com/salesdesk/salesdesk/internal/view/chart"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	pages   *view.Responder
}

func NewHandler(logger *slog.Logger, service *Service, pages *view.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, pages: pages}
}

// Home shows the admin overview; other roles get a greeting.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	holder := session.FromContext(r.Context())
	data := map[string]any{}
	if holder != nil {
		if id, ok := holder.Identity(); ok {
			data["Name"] = id.FullName
		}
	}
	if holder.Role() != api.RoleAdmin {
		h.pages.Render(w, r, "pages/dashboard/index.html", "Dashboard", data, http.StatusOK)
		return
	}

	data["Admin"] = true
	rng := parseRange(r)
	overview, err := h.service.Overview(r.Context(), rng)
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải dữ liệu dashboard.")
		if redirected {
			return
		}
		data["LoadError"] = msg
	} else {
		data["Overview"] = overview
		data["Chart"] = h.topSellers(overview.Stats.TopSellingProducts)
	}
	h.pages.Render(w, r, "pages/dashboard/index.html", "Dashboard", data, http.StatusOK)
}

func (h *Handler) topSellers(items []api.TopSellingItem) template.HTML {
	if len(items) == 0 {
		return ""
	}
	values := make([]float64, len(items))
	labels := make([]string, len(items))
	for i, it := range items {
		values[i] = float64(it.TotalSold)
		labels[i] = it.ProductName
	}
	svg, err := chart.Bars(0, 0, values, labels, chart.Options{
		Title:       "Top sản phẩm bán chạy",
		SeriesLabel: "Số lượng đã bán",
		Color:       "#8884d8",
		LabelRunes:  14,
		Integer:     true,
	})
	if err != nil {
		h.logger.Warn("render top sellers chart", slog.Any("error", err))
		return ""
	}
	return svg
}

// parseRange reads ?from and ?to (YYYY-MM-DD). Anything missing or invalid
// falls back to today.
func parseRange(r *http.Request) Range {
	from, errFrom := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), time.Local)
	to, errTo := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), time.Local)
	if errFrom != nil || errTo != nil || to.Before(from) {
		return Range{}
	}
	return Range{From: from, To: to}
}
