package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
)

var profileMessages = map[string]string{
	"FullName.required":        "Vui lòng nhập họ tên",
	"OldPassword.required":     "Nhập mật khẩu cũ",
	"NewPassword.required":     "Nhập mật khẩu mới",
	"NewPassword.min":          "Mật khẩu phải từ 6 ký tự",
	"ConfirmPassword.required": "Vui lòng xác nhận mật khẩu",
	"ConfirmPassword.eqfield":  "Mật khẩu xác nhận không khớp!",
}

type profileForm struct {
	FullName string `validate:"required,max=100"`
}

type passwordForm struct {
	OldPassword     string `validate:"required"`
	NewPassword     string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword"`
}

// MountProfileRoutes registers the self-service profile pages. The caller
// guards the group with an authentication check.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Get("/", h.showProfile)
	r.Post("/", h.updateProfile)
	r.Post("/password", h.changePassword)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, nil, http.StatusOK)
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, errs map[string]string, status int) {
	holder := session.FromContext(r.Context())
	identity, _ := holder.Identity()
	if errs == nil {
		errs = map[string]string{}
	}
	h.pages.Render(w, r, "pages/profile.html", "Hồ sơ cá nhân", map[string]any{
		"Identity": identity,
		"Errors":   errs,
	}, status)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := profileForm{FullName: strings.TrimSpace(r.PostFormValue("fullName"))}
	if err := h.validator.Struct(form); err != nil {
		h.renderProfile(w, r, shared.FormErrors(err, profileMessages), http.StatusBadRequest)
		return
	}
	holder := session.FromContext(r.Context())
	if _, err := holder.UpdateProfile(r.Context(), form.FullName); err != nil {
		h.pages.Fail(w, r, err, "/profile", "Lỗi khi cập nhật thông tin")
		return
	}
	h.logger.Info("profile updated", slog.String("full_name", form.FullName))
	h.pages.Redirect(w, r, "/profile", shared.FlashSuccess, "Cập nhật thông tin thành công!")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := passwordForm{
		OldPassword:     r.PostFormValue("oldPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.renderProfile(w, r, shared.FormErrors(err, profileMessages), http.StatusBadRequest)
		return
	}
	holder := session.FromContext(r.Context())
	if err := holder.ChangePassword(r.Context(), form.OldPassword, form.NewPassword); err != nil {
		h.pages.Fail(w, r, err, "/profile", "Lỗi khi đổi mật khẩu")
		return
	}
	h.pages.Redirect(w, r, "/profile", shared.FlashSuccess, "Đổi mật khẩu thành công!")
}

// Forbidden renders the page every denied route redirects to.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "pages/forbidden.html", "Không có quyền truy cập", nil, http.StatusForbidden)
}
