package products

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/salesdesk/salesdesk/internal/api"
	mdshared "github.com/salesdesk/salesdesk/internal/masterdata/shared"
	"github.com/salesdesk/salesdesk/internal/platform/httpx"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/uploads"
	"github.com/salesdesk/salesdesk/internal/view"
)

// EditorRoles may create, edit and delete products. Everyone signed in may
// browse the catalogue.
var EditorRoles = []string{api.RoleAdmin, api.RoleWarehouseStaff}

// Backend is the catalogue part of the backend API.
type Backend interface {
	ListProducts(ctx context.Context, f api.ProductFilter) (api.Page[api.Product], error)
	GetProduct(ctx context.Context, id int64) (api.Product, error)
	CreateProduct(ctx context.Context, in api.ProductRequest) (api.Product, error)
	UpdateProduct(ctx context.Context, id int64, in api.ProductRequest) (api.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	LowStockProducts(ctx context.Context, threshold int) ([]api.Product, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
}

type Handler struct {
	logger    *slog.Logger
	backend   Backend
	uploader  uploads.Uploader
	pages     *view.Responder
	rbac      rbac.Middleware
	audit     shared.AuditRecorder
	validator *validator.Validate
	lowStock  int
}

// NewHandler builds the product screens. audit may be nil.
func NewHandler(logger *slog.Logger, backend Backend, uploader uploads.Uploader, pages *view.Responder, rbacMW rbac.Middleware, audit shared.AuditRecorder, lowStock int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if lowStock <= 0 {
		lowStock = api.DefaultLowStockThreshold
	}
	return &Handler{
		logger:    logger,
		backend:   backend,
		uploader:  uploader,
		pages:     pages,
		rbac:      rbacMW,
		audit:     audit,
		validator: shared.NewValidator(),
		lowStock:  lowStock,
	}
}

// MountRoutes registers product routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute("/products"))
		r.Get("/", h.list)
		r.Get("/low-stock", h.lowStockList)
		r.Get("/search.json", h.searchJSON)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(EditorRoles...))
		r.Get("/new", h.newForm)
		r.Post("/", h.create)
		r.Get("/{id}/edit", h.editForm)
		r.Post("/{id}/edit", h.update)
		r.Post("/{id}/delete", h.delete)
	})
}

func (h *Handler) canEdit(r *http.Request) bool {
	return rbac.GuardRoute(session.FromContext(r.Context()).Role(), EditorRoles).Allow
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.ParseFilters(r)

	var (
		page       api.Page[api.Product]
		categories []api.Category
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page, err = h.backend.ListProducts(ctx, api.ProductFilter{
			Page:       filters.Page,
			Size:       filters.Limit,
			Search:     filters.Search,
			CategoryID: filters.CategoryID,
		})
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = h.backend.ListCategories(ctx)
		return err
	})

	data := map[string]any{
		"Filters":    filters,
		"Query":      filters.Query(),
		"CanEdit":    h.canEdit(r),
		"LowStockAt": h.lowStock,
	}
	if err := g.Wait(); err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách sản phẩm")
		if redirected {
			return
		}
		data["LoadError"] = msg
	} else {
		data["Products"] = page.Content
		data["Categories"] = categories
		data["Pagination"] = shared.NewPagination(page.Number, page.Size, page.TotalElements, page.TotalPages)
	}
	h.pages.Render(w, r, "pages/products/list.html", "Sản phẩm", data, http.StatusOK)
}

func (h *Handler) lowStockList(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStock
	if v, err := strconv.Atoi(r.URL.Query().Get("threshold")); err == nil && v > 0 {
		threshold = v
	}
	data := map[string]any{"Threshold": threshold, "CanEdit": h.canEdit(r)}
	items, err := h.backend.LowStockProducts(r.Context(), threshold)
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách sắp hết hàng")
		if redirected {
			return
		}
		data["LoadError"] = msg
	}
	data["Products"] = items
	h.pages.Render(w, r, "pages/products/low_stock.html", "Sản phẩm sắp hết hàng", data, http.StatusOK)
}

// searchJSON backs the product picker on the order and receipt forms.
func (h *Handler) searchJSON(w http.ResponseWriter, r *http.Request) {
	page, err := h.backend.ListProducts(r.Context(), api.ProductFilter{
		Size:   20,
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		h.pages.Unauthorized(r, err)
		httpx.RespondError(w, err)
		return
	}
	items := page.Content
	if items == nil {
		items = []api.Product{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, productForm{}, nil, http.StatusOK)
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.backend.GetProduct(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, "/products", "Không tìm thấy sản phẩm")
		return
	}
	h.renderForm(w, r, formFromProduct(product), nil, http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form productForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	categories, err := h.backend.ListCategories(r.Context())
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh mục")
		if redirected {
			return
		}
		errs["general"] = msg
	}
	title := "Thêm sản phẩm"
	if form.ID > 0 {
		title = "Sửa sản phẩm"
	}
	h.pages.Render(w, r, "pages/products/form.html", title, map[string]any{
		"Form":       form,
		"Errors":     errs,
		"Categories": categories,
	}, status)
}

// bind parses the submitted form and stores a chosen image. ok is false when
// the form was answered already.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request) (productForm, map[string]string, bool) {
	if err := r.ParseMultipartForm(uploads.MaxImageBytes + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return productForm{}, nil, false
	}
	form := parseForm(r)
	errs := shared.FormErrors(h.validator.Struct(form), formMessages)

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		errs["Image"] = formMessages["Image"]
	default:
		defer file.Close()
		if err := uploads.CheckImage(header.Filename, header.Size); err != nil {
			errs["Image"] = formMessages["Image"]
			break
		}
		if len(errs) > 0 {
			break
		}
		url, err := h.uploader.Upload(r.Context(), header.Filename, file)
		if err != nil {
			if api.IsUnauthorized(err) {
				h.pages.Fail(w, r, err, "/products", "")
				return productForm{}, nil, false
			}
			h.logger.Warn("image upload failed", slog.Any("error", err))
			errs["Image"] = "Tải ảnh lên thất bại"
			break
		}
		form.ImageURL = url
	}
	return form, errs, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, errs, ok := h.bind(w, r)
	if !ok {
		return
	}
	if len(errs) > 0 {
		h.renderForm(w, r, form, errs, http.StatusBadRequest)
		return
	}
	created, err := h.backend.CreateProduct(r.Context(), form.request())
	if err != nil {
		if api.IsUnauthorized(err) || api.IsForbidden(err) {
			h.pages.Fail(w, r, err, "/products", "")
			return
		}
		h.renderForm(w, r, form, map[string]string{"general": api.Message(err, "Lỗi khi thêm sản phẩm")}, http.StatusBadRequest)
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "create", Entity: "product",
		EntityID: strconv.FormatInt(created.ID, 10), Meta: map[string]any{"sku": created.SKU},
	})
	h.pages.Redirect(w, r, "/products", shared.FlashSuccess, "Thêm sản phẩm thành công")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, errs, ok := h.bind(w, r)
	if !ok {
		return
	}
	form.ID = id
	if len(errs) > 0 {
		h.renderForm(w, r, form, errs, http.StatusBadRequest)
		return
	}
	if _, err := h.backend.UpdateProduct(r.Context(), id, form.request()); err != nil {
		if api.IsUnauthorized(err) || api.IsForbidden(err) {
			h.pages.Fail(w, r, err, "/products", "")
			return
		}
		h.renderForm(w, r, form, map[string]string{"general": api.Message(err, "Lỗi khi cập nhật sản phẩm")}, http.StatusBadRequest)
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "update", Entity: "product", EntityID: strconv.FormatInt(id, 10),
	})
	h.pages.Redirect(w, r, "/products", shared.FlashSuccess, "Cập nhật sản phẩm thành công")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.backend.DeleteProduct(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/products", "Lỗi khi xóa sản phẩm")
		return
	}
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: "delete", Entity: "product", EntityID: strconv.FormatInt(id, 10),
	})
	h.pages.Redirect(w, r, "/products", shared.FlashSuccess, "Xóa sản phẩm thành công")
}
