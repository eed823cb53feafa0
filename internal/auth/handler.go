package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/view"
)

// Messages shown on the login form.
const (
	MsgBadCredentials = "Sai email hoặc mật khẩu. Vui lòng thử lại."
	MsgWelcome        = "Chào mừng bạn quay trở lại"
)

var loginMessages = map[string]string{
	"Email.required":    "Vui lòng nhập Email!",
	"Email.email":       "Email không hợp lệ!",
	"Password.required": "Vui lòng nhập Mật khẩu!",
}

// CartDropper discards the order cart bound to a browser session.
type CartDropper interface {
	Delete(ctx context.Context, sessionID string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	pages          *view.Responder
	sessionManager *shared.SessionManager
	carts          CartDropper
	validator      *validator.Validate
	now            func() time.Time
}

// NewHandler constructs a Handler instance. carts may be nil.
func NewHandler(logger *slog.Logger, pages *view.Responder, sessions *shared.SessionManager, carts CartDropper) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		pages:          pages,
		sessionManager: sessions,
		carts:          carts,
		validator:      shared.NewValidator(),
		now:            time.Now,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if holder := session.FromContext(r.Context()); holder != nil && holder.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.pages.Render(w, r, "pages/login.html", "Đăng nhập", map[string]any{
		"Form":   loginForm{},
		"Errors": map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := shared.FormErrors(h.validator.Struct(form), loginMessages)

	holder := session.FromContext(r.Context())
	if holder == nil {
		h.logger.Error("session holder missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(errs) == 0 {
		err := holder.Login(r.Context(), form.Email, form.Password)
		if err == nil {
			sess := shared.SessionFromContext(r.Context())
			h.sessionManager.Renew(sess)
			sess.Delete(shared.CSRFSessionKey)
			session.MarkChecked(sess, h.now())
			if exp, ok := holder.ExpiresAt(); ok {
				sess.ExpireAt(exp)
			}
			h.pages.Redirect(w, r, "/", shared.FlashSuccess, MsgWelcome)
			return
		}
		if api.IsUnauthorized(err) || api.StatusOf(err) == http.StatusBadRequest {
			errs["general"] = MsgBadCredentials
		} else {
			h.logger.Warn("login failed", slog.Any("error", err))
			errs["general"] = api.Message(err, view.MsgGenericError)
		}
	}

	form.Password = ""
	h.pages.Render(w, r, "pages/login.html", "Đăng nhập", map[string]any{
		"Form":   form,
		"Errors": errs,
	}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if holder := session.FromContext(r.Context()); holder != nil {
		holder.Logout()
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if h.carts != nil {
			if err := h.carts.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Warn("drop cart on logout", slog.Any("error", err))
			}
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}
