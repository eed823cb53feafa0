// Package warehouse serves goods receipts, stock adjustments and invoice
// scanning for the receipt form.
package warehouse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/uploads"
	"github.com/salesdesk/salesdesk/internal/view"
)

const (
	receiptsPath    = "/warehouse/receipts"
	adjustmentsPath = "/warehouse/adjustments"

	blankRows = 3
)

// Backend is the warehouse part of the backend API.
type Backend interface {
	Catalog
	GetProduct(ctx context.Context, id int64) (api.Product, error)
	CreateReceipt(ctx context.Context, in api.ReceiptRequest) error
	CreateAdjustment(ctx context.Context, in api.AdjustmentRequest) error
	ScanInvoice(ctx context.Context, filename string, r io.Reader) (api.InvoiceScan, error)
}

type Handler struct {
	logger    *slog.Logger
	backend   Backend
	matcher   *Matcher
	pages     *view.Responder
	rbac      rbac.Middleware
	audit     shared.AuditRecorder
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, backend Backend, pages *view.Responder, rbacMW rbac.Middleware, audit shared.AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		backend:   backend,
		matcher:   NewMatcher(backend),
		pages:     pages,
		rbac:      rbacMW,
		audit:     audit,
		validator: shared.NewValidator(),
	}
}

// MountRoutes registers routes relative to /warehouse.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute(receiptsPath))
		r.Get("/receipts", h.ReceiptForm)
		r.Post("/receipts", h.CreateReceipt)
		r.Post("/receipts/scan", h.Scan)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute(adjustmentsPath))
		r.Get("/adjustments", h.AdjustmentForm)
		r.Post("/adjustments", h.CreateAdjustment)
	})
}

// ReceiptForm renders an empty receipt; ?product=ID starts it with one line
// for that product, as linked from the low-stock list.
func (h *Handler) ReceiptForm(w http.ResponseWriter, r *http.Request) {
	form := receiptForm{}
	errs := map[string]string{}
	if raw := r.URL.Query().Get("product"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			product, err := h.backend.GetProduct(r.Context(), id)
			if err != nil {
				msg, redirected := h.pages.FetchFailed(w, r, err, "Không tìm thấy sản phẩm")
				if redirected {
					return
				}
				errs["general"] = msg
			} else {
				form.Lines = append(form.Lines, receiptLine{ProductID: product.ID, ProductName: product.Name, Quantity: 1})
			}
		}
	}
	h.renderReceipt(w, r, form, errs, nil, http.StatusOK)
}

func (h *Handler) renderReceipt(w http.ResponseWriter, r *http.Request, form receiptForm, errs map[string]string, suggestion *Suggestion, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	suppliers, err := h.backend.AllSuppliers(r.Context())
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách nhà cung cấp")
		if redirected {
			return
		}
		errs["general"] = msg
	}
	data := map[string]any{
		"Form":      form,
		"Errors":    errs,
		"Suppliers": suppliers,
		"Blank":     make([]struct{}, blankRows),
	}
	if suggestion != nil {
		data["Suggestion"] = suggestion
		data["Unmatched"] = suggestion.Unmatched()
	}
	h.pages.Render(w, r, "pages/warehouse/receipt.html", "Tạo Phiếu Nhập Kho", data, status)
}

func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseReceipt(r)
	if errs := shared.FormErrors(h.validator.Struct(form), receiptMessages); len(errs) > 0 {
		h.renderReceipt(w, r, form, errs, nil, http.StatusBadRequest)
		return
	}
	if err := h.backend.CreateReceipt(r.Context(), form.request()); err != nil {
		if api.IsUnauthorized(err) || api.IsForbidden(err) {
			h.pages.Fail(w, r, err, receiptsPath, "")
			return
		}
		h.logger.Warn("create receipt failed", slog.Any("error", err))
		h.renderReceipt(w, r, form, map[string]string{"general": api.Message(err, "Lỗi nhập kho")}, nil, http.StatusBadRequest)
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "create", Entity: "receipt",
		Meta: map[string]any{"supplier_id": form.SupplierID, "lines": len(form.Lines), "total": form.Total()},
	})
	h.pages.Redirect(w, r, "/products", shared.FlashSuccess, "Nhập kho thành công!")
}

// Scan sends the invoice image for extraction and renders the receipt form
// prefilled with matched suppliers and products. Nothing is saved here.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploads.MaxImageBytes + 1<<20); err != nil {
		h.renderReceipt(w, r, receiptForm{}, map[string]string{"Invoice": "Vui lòng chọn ảnh hóa đơn"}, nil, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderReceipt(w, r, receiptForm{}, map[string]string{"Invoice": "Vui lòng chọn ảnh hóa đơn"}, nil, http.StatusBadRequest)
		return
	}
	defer file.Close()
	if err := uploads.CheckImage(header.Filename, header.Size); err != nil {
		h.renderReceipt(w, r, receiptForm{}, map[string]string{"Invoice": "Ảnh phải là JPG, PNG, GIF hoặc WEBP và không quá 5MB"}, nil, http.StatusBadRequest)
		return
	}

	scan, err := h.backend.ScanInvoice(r.Context(), header.Filename, file)
	if err == nil {
		var suggestion Suggestion
		suggestion, err = h.matcher.Suggest(r.Context(), scan)
		if err == nil {
			h.logger.Info("invoice scanned",
				slog.Int("items", len(scan.Items)),
				slog.Int("unmatched", len(suggestion.Unmatched())),
				slog.Bool("supplier_matched", suggestion.Supplier != nil))
			h.renderReceipt(w, r, draftFromSuggestion(suggestion), nil, &suggestion, http.StatusOK)
			return
		}
	}
	if api.IsUnauthorized(err) || api.IsForbidden(err) {
		h.pages.Fail(w, r, err, receiptsPath, "")
		return
	}
	h.logger.Warn("invoice scan failed", slog.Any("error", err))
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	h.renderReceipt(w, r, receiptForm{}, map[string]string{"Invoice": api.Message(err, "Không thể đọc hóa đơn, vui lòng nhập tay")}, nil, status)
}

// AdjustmentForm shows product search results and, once chosen, the
// product's current stock.
func (h *Handler) AdjustmentForm(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	form := adjustmentForm{NewQuantity: -1}
	if raw := r.URL.Query().Get("product"); raw != "" {
		form.ProductID, _ = strconv.ParseInt(raw, 10, 64)
	}
	h.renderAdjustment(w, r, q, form, nil, http.StatusOK)
}

func (h *Handler) renderAdjustment(w http.ResponseWriter, r *http.Request, q string, form adjustmentForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	var (
		results  []api.Product
		selected *api.Product
	)
	g, ctx := errgroup.WithContext(r.Context())
	if q != "" {
		g.Go(func() error {
			page, err := h.backend.ListProducts(ctx, api.ProductFilter{Size: candidateSize, Search: q})
			results = page.Content
			return err
		})
	}
	if form.ProductID > 0 {
		g.Go(func() error {
			p, err := h.backend.GetProduct(ctx, form.ProductID)
			if err != nil {
				return err
			}
			selected = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải sản phẩm")
		if redirected {
			return
		}
		errs["general"] = msg
	}
	h.pages.Render(w, r, "pages/warehouse/adjustment.html", "Kiểm kê / Điều chỉnh tồn kho", map[string]any{
		"Query":    q,
		"Results":  results,
		"Selected": selected,
		"Form":     form,
		"Errors":   errs,
	}, status)
}

func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	form := parseAdjustment(r)
	if errs := shared.FormErrors(h.validator.Struct(form), adjustmentMessages); len(errs) > 0 {
		h.renderAdjustment(w, r, "", form, errs, http.StatusBadRequest)
		return
	}
	err := h.backend.CreateAdjustment(r.Context(), api.AdjustmentRequest{
		ProductID:   form.ProductID,
		NewQuantity: form.NewQuantity,
		Reason:      form.Reason,
	})
	if err != nil {
		if api.IsUnauthorized(err) || api.IsForbidden(err) {
			h.pages.Fail(w, r, err, adjustmentsPath, "")
			return
		}
		h.renderAdjustment(w, r, "", form, map[string]string{"general": api.Message(err, "Lỗi điều chỉnh kho")}, http.StatusBadRequest)
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "adjust", Entity: "product",
		EntityID: strconv.FormatInt(form.ProductID, 10),
		Meta:     map[string]any{"new_quantity": form.NewQuantity, "reason": form.Reason},
	})
	h.pages.Redirect(w, r, adjustmentsPath, shared.FlashSuccess, "Điều chỉnh kho thành công!")
}
