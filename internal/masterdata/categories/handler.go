package categories

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

// Backend is the category part of the backend API.
type Backend interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
	CreateCategory(ctx context.Context, in api.CategoryRequest) (api.Category, error)
	UpdateCategory(ctx context.Context, id int64, in api.CategoryRequest) (api.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
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
	data := map[string]any{}
	categories, err := h.backend.ListCategories(r.Context())
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh mục")
		if redirected {
			return
		}
		data["LoadError"] = msg
	}
	data["Categories"] = categories
	h.pages.Render(w, r, "pages/categories/list.html", "Danh mục", data, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, categoryForm{}, nil, http.StatusOK)
}

// EditForm looks the category up in the full list; the backend has no
// single-category read.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	categories, err := h.backend.ListCategories(r.Context())
	if err != nil {
		h.pages.Fail(w, r, err, "/categories", "Không thể tải danh mục")
		return
	}
	for _, c := range categories {
		if c.ID == id {
			h.renderForm(w, r, categoryForm{ID: c.ID, Name: c.Name, Description: c.Description}, nil, http.StatusOK)
			return
		}
	}
	h.pages.Redirect(w, r, "/categories", shared.FlashError, "Không tìm thấy danh mục")
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form categoryForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	title := "Thêm danh mục"
	if form.ID > 0 {
		title = "Sửa danh mục"
	}
	h.pages.Render(w, r, "pages/categories/form.html", title, map[string]any{
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
	created, err := h.backend.CreateCategory(r.Context(), form.request())
	if err != nil {
		h.fail(w, r, form, err, "Lỗi khi thêm danh mục")
		return
	}
	h.record(r, "create", created.ID)
	h.pages.Redirect(w, r, "/categories", shared.FlashSuccess, "Thêm danh mục thành công")
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
	if _, err := h.backend.UpdateCategory(r.Context(), id, form.request()); err != nil {
		h.fail(w, r, form, err, "Lỗi khi cập nhật danh mục")
		return
	}
	h.record(r, "update", id)
	h.pages.Redirect(w, r, "/categories", shared.FlashSuccess, "Cập nhật danh mục thành công")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.backend.DeleteCategory(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/categories", "Không thể xóa danh mục đang có sản phẩm")
		return
	}
	h.record(r, "delete", id)
	h.pages.Redirect(w, r, "/categories", shared.FlashSuccess, "Xóa danh mục thành công")
}

// fail keeps the user's input on the form for validation and conflict
// errors, and defers to the responder for the rest.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, form categoryForm, err error, fallback string) {
	switch api.StatusOf(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		h.renderForm(w, r, form, map[string]string{"general": api.Message(err, fallback)}, http.StatusBadRequest)
	default:
		h.pages.Fail(w, r, err, "/categories", fallback)
	}
}

func (h *Handler) record(r *http.Request, action string, id int64) {
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: action, Entity: "category", EntityID: strconv.FormatInt(id, 10),
	})
}
