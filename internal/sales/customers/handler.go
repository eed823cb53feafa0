package customers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/platform/httpx"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

// Backend is the customer part of the backend API.
type Backend interface {
	ListCustomers(ctx context.Context, page, size int) (api.Page[api.Customer], error)
	SearchCustomers(ctx context.Context, phone string) ([]api.Customer, error)
	GetCustomer(ctx context.Context, id int64) (api.Customer, error)
	CreateCustomer(ctx context.Context, in api.CustomerRequest) (api.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, in api.CustomerRequest) (api.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
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

// List shows one page of customers, or every match when ?phone is given.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	phone := normalizePhone(r.URL.Query().Get("phone"))
	data := map[string]any{"Phone": phone}

	var err error
	if phone != "" {
		var found []api.Customer
		found, err = h.backend.SearchCustomers(r.Context(), phone)
		data["Customers"] = found
	} else {
		var page api.Page[api.Customer]
		page, err = h.backend.ListCustomers(r.Context(), shared.PageQuery(r.URL.Query().Get("page")), api.DefaultPageSize)
		data["Customers"] = page.Content
		data["Pagination"] = shared.NewPagination(page.Number, page.Size, page.TotalElements, page.TotalPages)
	}
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách khách hàng")
		if redirected {
			return
		}
		data["LoadError"] = msg
		delete(data, "Pagination")
	}
	h.pages.Render(w, r, "pages/customers/list.html", "Khách hàng", data, http.StatusOK)
}

// SearchJSON backs the customer lookup on the order form.
func (h *Handler) SearchJSON(w http.ResponseWriter, r *http.Request) {
	phone := normalizePhone(r.URL.Query().Get("phone"))
	if phone == "" {
		httpx.JSON(w, http.StatusOK, []api.Customer{})
		return
	}
	found, err := h.backend.SearchCustomers(r.Context(), phone)
	if err != nil {
		h.pages.Unauthorized(r, err)
		httpx.RespondError(w, err)
		return
	}
	if found == nil {
		found = []api.Customer{}
	}
	httpx.JSON(w, http.StatusOK, found)
}

func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	form := customerForm{PhoneNumber: normalizePhone(r.URL.Query().Get("phone"))}
	h.renderForm(w, r, form, nil, returnPath(r.URL.Query().Get("return")), http.StatusOK)
}

func (h *Handler) ShowEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	customer, err := h.backend.GetCustomer(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, "/customers", "Không tìm thấy khách hàng")
		return
	}
	h.renderForm(w, r, formFromCustomer(customer), nil, "", http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form customerForm, errs map[string]string, back string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	title := "Thêm khách hàng"
	if form.ID > 0 {
		title = "Sửa khách hàng"
	}
	h.pages.Render(w, r, "pages/customers/form.html", title, map[string]any{
		"Form":   form,
		"Errors": errs,
		"Return": back,
	}, status)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	back := returnPath(r.PostFormValue("return"))
	if err := h.validator.Struct(form); err != nil {
		h.renderForm(w, r, form, shared.FormErrors(err, formMessages), back, http.StatusBadRequest)
		return
	}
	created, err := h.backend.CreateCustomer(r.Context(), form.request())
	if err != nil {
		h.fail(w, r, form, back, err, "Lỗi khi thêm khách hàng")
		return
	}
	h.record(r, "create", created.ID)
	target := "/customers"
	if back != "" {
		target = back + "?customer=" + strconv.FormatInt(created.ID, 10)
	}
	h.pages.Redirect(w, r, target, shared.FlashSuccess, "Thêm khách hàng thành công")
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
		h.renderForm(w, r, form, shared.FormErrors(err, formMessages), "", http.StatusBadRequest)
		return
	}
	if _, err := h.backend.UpdateCustomer(r.Context(), id, form.request()); err != nil {
		h.fail(w, r, form, "", err, "Lỗi khi cập nhật khách hàng")
		return
	}
	h.record(r, "update", id)
	h.pages.Redirect(w, r, "/customers", shared.FlashSuccess, "Cập nhật khách hàng thành công")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.backend.DeleteCustomer(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/customers", "Lỗi khi xóa khách hàng")
		return
	}
	h.record(r, "delete", id)
	h.pages.Redirect(w, r, "/customers", shared.FlashSuccess, "Xóa khách hàng thành công")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, form customerForm, back string, err error, fallback string) {
	switch api.StatusOf(err) {
	case http.StatusConflict:
		h.renderForm(w, r, form, map[string]string{"PhoneNumber": api.Message(err, MsgPhoneTaken)}, back, http.StatusBadRequest)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		h.renderForm(w, r, form, map[string]string{"general": api.Message(err, fallback)}, back, http.StatusBadRequest)
	default:
		h.pages.Fail(w, r, err, "/customers", fallback)
	}
}

func (h *Handler) record(r *http.Request, action string, id int64) {
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: action, Entity: "customer", EntityID: strconv.FormatInt(id, 10),
	})
}

// returnPath only lets a new customer flow back into order creation.
func returnPath(raw string) string {
	if strings.TrimSpace(raw) == "/orders/new" {
		return "/orders/new"
	}
	return ""
}
