package orders

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/cart"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

// Backend is the part of the backend API used by the order screens.
type Backend interface {
	ListOrders(ctx context.Context, page, size int) (api.Page[api.Order], error)
	GetOrder(ctx context.Context, id int64) (api.Order, error)
	CreateOrder(ctx context.Context, in api.OrderCreateRequest) (int64, error)
	CancelOrder(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f api.ProductFilter) (api.Page[api.Product], error)
	GetProduct(ctx context.Context, id int64) (api.Product, error)
	SearchCustomers(ctx context.Context, phone string) ([]api.Customer, error)
	GetCustomer(ctx context.Context, id int64) (api.Customer, error)
}

// CartStore keeps one cart per browser session.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error)
}

// SubmitObserver counts order submissions by outcome.
type SubmitObserver interface {
	ObserveOrderSubmit(outcome string)
}

// InvoicePrinter renders an order as a PDF.
type InvoicePrinter interface {
	PDF(ctx context.Context, order api.Order) ([]byte, error)
}

// Deps wires a Handler. Idempotency, Audit, Observer and Invoices are optional.
type Deps struct {
	Logger      *slog.Logger
	Backend     Backend
	Carts       CartStore
	Pages       *view.Responder
	RBAC        rbac.Middleware
	Idempotency shared.IdempotencyGuard
	Audit       shared.AuditRecorder
	Observer    SubmitObserver
	Invoices    InvoicePrinter
}

type Handler struct {
	logger   *slog.Logger
	backend  Backend
	carts    CartStore
	pages    *view.Responder
	rbac     rbac.Middleware
	idem     shared.IdempotencyGuard
	audit    shared.AuditRecorder
	observer SubmitObserver
	invoices InvoicePrinter
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		backend:  d.Backend,
		carts:    d.Carts,
		pages:    d.Pages,
		rbac:     d.RBAC,
		idem:     d.Idempotency,
		audit:    d.Audit,
		observer: d.Observer,
		invoices: d.Invoices,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	page, err := h.backend.ListOrders(r.Context(), shared.PageQuery(r.URL.Query().Get("page")), api.DefaultPageSize)
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách đơn hàng")
		if redirected {
			return
		}
		data["LoadError"] = msg
	} else {
		data["Orders"] = page.Content
		data["Pagination"] = shared.NewPagination(page.Number, page.Size, page.TotalElements, page.TotalPages)
	}
	h.pages.Render(w, r, "pages/orders/list.html", "Danh sách đơn hàng", data, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	order, err := h.backend.GetOrder(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, "/orders/list", "Không tìm thấy đơn hàng")
		return
	}
	h.pages.Render(w, r, "pages/orders/show.html", "Đơn hàng #"+strconv.FormatInt(order.ID, 10), map[string]any{
		"Order":     order,
		"CanCancel": order.Status != api.OrderCancelled,
		"CanPrint":  h.invoices != nil,
	}, http.StatusOK)
}

// Invoice streams the printable PDF of an order.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	if h.invoices == nil {
		http.NotFound(w, r)
		return
	}
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	back := "/orders/" + strconv.FormatInt(id, 10)
	order, err := h.backend.GetOrder(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, "/orders/list", "Không tìm thấy đơn hàng")
		return
	}
	pdf, err := h.invoices.PDF(r.Context(), order)
	if err != nil {
		h.logger.Error("render invoice", slog.Int64("order", id), slog.Any("error", err))
		h.pages.Redirect(w, r, back, shared.FlashError, "Không thể in hóa đơn, vui lòng thử lại")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=hoa-don-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Cancel asks the backend to cancel the order; the backend restocks it.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	back := "/orders/" + strconv.FormatInt(id, 10)
	if err := h.backend.CancelOrder(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, back, "Không thể hủy đơn hàng")
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "cancel", Entity: "order", EntityID: strconv.FormatInt(id, 10),
	})
	h.pages.Redirect(w, r, back, shared.FlashSuccess, "Đã hủy đơn hàng")
}
