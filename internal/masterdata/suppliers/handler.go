package suppliers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/api"
	mdshared "github.com/salesdesk/salesdesk/internal/masterdata/shared"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

// Backend is the supplier part of the backend API.
type Backend interface {
	ListSuppliers(ctx context.Context, page, size int) (api.Page[api.Supplier], error)
	GetSupplier(ctx context.Context, id int64) (api.Supplier, error)
	CreateSupplier(ctx context.Context, in api.SupplierRequest) (api.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in api.SupplierRequest) (api.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type Handler struct {
	logger    *slog.Logger
	backend   Backend
	pages     *view.Responder
	rbac      rbac.Middleware
	audit     shared.AuditRecorder
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, backend Backend, pages *view.Responder, rbacMW rbac.Middleware, audit shared.AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, backend: backend, pages: pages, rbac: rbacMW, audit: audit, validator: shared.NewValidator()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.ParseFilters(r)
	data := map[string]any{"Query": filters.Query()}
	page, err := h.backend.ListSuppliers(r.Context(), filters.Page, filters.Limit)
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách nhà cung cấp")
		if redirected {
			return
		}
		data["LoadError"] = msg
	} else {
		data["Suppliers"] = page.Content
		data["Pagination"] = shared.NewPagination(page.Number, page.Size, page.TotalElements, page.TotalPages)
	}
	h.pages.Render(w, r, "pages/suppliers/list.html", "Nhà cung cấp", data, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, supplierForm{IsActive: true}, nil, http.StatusOK)
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	supplier, err := h.backend.GetSupplier(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, "/suppliers", "Không tìm thấy nhà cung cấp")
		return
	}
	h.renderForm(w, r, formFromSupplier(supplier), nil, http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form supplierForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	title := "Thêm nhà cung cấp"
	if form.ID > 0 {
		title = "Sửa nhà cung cấp"
	}
	h.pages.Render(w, r, "pages/suppliers/form.html", title, map[string]any{
		"Form":   form,
		"Errors": errs,
	}, status)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	if err := h.validator.Struct(form); err != nil {
		h.renderForm(w, r, form, shared.FormErrors(err, formMessages), http.StatusBadRequest)
		return
	}
	created, err := h.backend.CreateSupplier(r.Context(), form.request())
	if err != nil {
		h.fail(w, r, form, err, "Lỗi khi thêm nhà cung cấp")
		return
	}
	h.record(r, "create", created.ID)
	h.pages.Redirect(w, r, "/suppliers", shared.FlashSuccess, "Thêm nhà cung cấp thành công")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	form.ID = id
	if err := h.validator.Struct(form); err != nil {
		h.renderForm(w, r, form, shared.FormErrors(err, formMessages), http.StatusBadRequest)
		return
	}
	if _, err := h.backend.UpdateSupplier(r.Context(), id, form.request()); err != nil {
		h.fail(w, r, form, err, "Lỗi khi cập nhật nhà cung cấp")
		return
	}
	h.record(r, "update", id)
	h.pages.Redirect(w, r, "/suppliers", shared.FlashSuccess, "Cập nhật nhà cung cấp thành công")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.backend.DeleteSupplier(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/suppliers", "Lỗi khi xóa nhà cung cấp")
		return
	}
	h.record(r, "delete", id)
	h.pages.Redirect(w, r, "/suppliers", shared.FlashSuccess, "Xóa nhà cung cấp thành công")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, form supplierForm, err error, fallback string) {
	switch api.StatusOf(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		h.renderForm(w, r, form, map[string]string{"general": api.Message(err, fallback)}, http.StatusBadRequest)
	default:
		h.pages.Fail(w, r, err, "/suppliers", fallback)
	}
}

func (h *Handler) record(r *http.Request, action string, id int64) {
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: action, Entity: "supplier", EntityID: strconv.FormatInt(id, 10),
	})
}
