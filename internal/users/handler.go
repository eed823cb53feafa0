package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/api"
	mdshared "github.com/salesdesk/salesdesk/internal/masterdata/shared"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

const (
	MsgSelfAction = "Không thể thao tác trên tài khoản của chính mình"
	msgNotFound   = "Không tìm thấy nhân viên"

	// lookupPageSize bounds each page read while resolving a user by id.
	lookupPageSize = 100
	lookupMaxPages = 20
)

var errUserNotFound = errors.New("users: not found")

// Backend is the staff account part of the backend API.
type Backend interface {
	ListUsers(ctx context.Context, page, size int) (api.Page[api.User], error)
	CreateUser(ctx context.Context, in api.UserCreateRequest) (api.User, error)
	ToggleUserStatus(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
}

// Handler manages staff accounts. Only admins reach it.
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

type userRow struct {
	api.User
	Self bool
	Tag  string
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.ParseFilters(r)
	data := map[string]any{}
	page, err := h.backend.ListUsers(r.Context(), filters.Page, filters.Limit)
	if err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải danh sách nhân viên")
		if redirected {
			return
		}
		data["LoadError"] = msg
	} else {
		me := session.Actor(r.Context())
		rows := make([]userRow, 0, len(page.Content))
		for _, u := range page.Content {
			rows = append(rows, userRow{User: u, Self: strings.EqualFold(u.Email, me), Tag: roleTag(u.RoleName)})
		}
		data["Users"] = rows
		data["Pagination"] = shared.NewPagination(page.Number, page.Size, page.TotalElements, page.TotalPages)
	}
	h.pages.Render(w, r, "pages/users/list.html", "Quản lý Nhân viên", data, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, userForm{}, nil, http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form userForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	form.Password = ""
	h.pages.Render(w, r, "pages/users/form.html", "Tạo tài khoản nhân viên", map[string]any{
		"Form":   form,
		"Errors": errs,
		"Roles":  roleOptions,
	}, status)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	form := parseForm(r)
	if errs := shared.FormErrors(h.validator.Struct(form), formMessages); len(errs) > 0 {
		h.renderForm(w, r, form, errs, http.StatusBadRequest)
		return
	}
	created, err := h.backend.CreateUser(r.Context(), form.request())
	if err != nil {
		switch {
		case api.IsUnauthorized(err) || api.IsForbidden(err):
			h.pages.Fail(w, r, err, "/users", "")
		case api.StatusOf(err) == http.StatusConflict:
			h.renderForm(w, r, form, map[string]string{"Email": api.Message(err, "Email đã tồn tại")}, http.StatusConflict)
		default:
			h.renderForm(w, r, form, map[string]string{"general": api.Message(err, "Lỗi khi tạo tài khoản")}, http.StatusBadRequest)
		}
		return
	}
	h.record(r, "create", created.ID)
	h.pages.Redirect(w, r, "/users", shared.FlashSuccess, "Tạo tài khoản thành công!")
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.backend.ToggleUserStatus(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/users", "Lỗi khi cập nhật trạng thái")
		return
	}
	h.record(r, "toggle_status", id)
	h.pages.Redirect(w, r, "/users", shared.FlashSuccess, "Đã cập nhật trạng thái nhân viên")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.backend.DeleteUser(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, "/users", "Lỗi khi xóa")
		return
	}
	h.record(r, "delete", id)
	h.pages.Redirect(w, r, "/users", shared.FlashSuccess, "Đã xóa nhân viên")
}

// target resolves the account named in the URL and refuses the signed-in
// user's own account.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shared.URLParamID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	user, err := h.lookup(r.Context(), id)
	switch {
	case errors.Is(err, errUserNotFound):
		h.pages.Redirect(w, r, "/users", shared.FlashError, msgNotFound)
		return 0, false
	case err != nil:
		h.pages.Fail(w, r, err, "/users", msgNotFound)
		return 0, false
	}
	if strings.EqualFold(user.Email, session.Actor(r.Context())) {
		h.pages.Redirect(w, r, "/users", shared.FlashWarning, MsgSelfAction)
		return 0, false
	}
	return id, true
}

// lookup scans the user pages for id; the backend has no single-user read.
func (h *Handler) lookup(ctx context.Context, id int64) (api.User, error) {
	for page := 0; page < lookupMaxPages; page++ {
		res, err := h.backend.ListUsers(ctx, page, lookupPageSize)
		if err != nil {
			return api.User{}, err
		}
		for _, u := range res.Content {
			if u.ID == id {
				return u, nil
			}
		}
		if page+1 >= res.TotalPages {
			break
		}
	}
	return api.User{}, errUserNotFound
}

func (h *Handler) record(r *http.Request, action string, id int64) {
	shared.RecordQuietly(r.Context(), h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(r.Context()), Action: action, Entity: "user", EntityID: strconv.FormatInt(id, 10),
	})
}
