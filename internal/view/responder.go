package view

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Messages shown when the backend gives no usable message.
const (
	MsgGenericError   = "Đã xảy ra lỗi, vui lòng thử lại"
	MsgSessionExpired = "Phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại"
)

// Responder renders pages with the console chrome (menu, user, flash, CSRF)
// and maps backend failures onto redirects.
type Responder struct {
	engine *Engine
	csrf   *shared.CSRFManager
	menu   []rbac.MenuNode
	logger *slog.Logger
}

// NewResponder builds a Responder.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, menu []rbac.MenuNode, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{engine: engine, csrf: csrf, menu: menu, logger: logger}
}

// Render executes tmpl with data. The page is rendered into a buffer first so
// a template error never leaves a half-written response.
func (p *Responder) Render(w http.ResponseWriter, r *http.Request, tmpl, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if p.csrf != nil && sess != nil {
		csrfToken, _ = p.csrf.EnsureToken(r.Context(), sess)
	}

	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	viewData := TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if holder := session.FromContext(r.Context()); holder != nil && holder.IsAuthenticated() {
		if id, ok := holder.Identity(); ok {
			viewData.User = &id
			viewData.Nav = rbac.FilterMenu(p.menu, holder.Role())
		}
	}

	var buf bytes.Buffer
	if err := p.engine.templates.ExecuteTemplate(&buf, tmpl, viewData); err != nil {
		p.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Redirect stores a flash message and redirects with 303.
func (p *Responder) Redirect(w http.ResponseWriter, r *http.Request, url, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Fail handles an error returned by the backend. 401 signs the user out and
// sends them to the login page, 403 goes to the forbidden page, anything
// else is flashed on back.
func (p *Responder) Fail(w http.ResponseWriter, r *http.Request, err error, back, fallback string) {
	switch {
	case api.IsUnauthorized(err):
		if holder := session.FromContext(r.Context()); holder != nil {
			holder.ForceLogout(r.Context())
		}
		p.Redirect(w, r, rbac.DefaultLoginPath, shared.FlashWarning, MsgSessionExpired)
	case api.IsForbidden(err):
		http.Redirect(w, r, rbac.ForbiddenPath, http.StatusSeeOther)
	default:
		if fallback == "" {
			fallback = MsgGenericError
		}
		p.logger.Warn("backend call failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		p.Redirect(w, r, back, shared.FlashError, api.Message(err, fallback))
	}
}

// Unauthorized reports whether err ended the session; callers rendering
// JSON use it to answer 401 instead of redirecting.
func (p *Responder) Unauthorized(r *http.Request, err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	if holder := session.FromContext(r.Context()); holder != nil {
		holder.ForceLogout(r.Context())
	}
	return true
}

// FetchFailed handles a failed load for a page that still renders without
// its data. On 401 or 403 it redirects and reports redirected; otherwise it
// returns the message to show in place of the data.
func (p *Responder) FetchFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) (msg string, redirected bool) {
	switch {
	case api.IsUnauthorized(err):
		if holder := session.FromContext(r.Context()); holder != nil {
			holder.ForceLogout(r.Context())
		}
		p.Redirect(w, r, rbac.DefaultLoginPath, shared.FlashWarning, MsgSessionExpired)
		return "", true
	case api.IsForbidden(err):
		http.Redirect(w, r, rbac.ForbiddenPath, http.StatusSeeOther)
		return "", true
	}
	p.logger.Warn("page data unavailable", slog.Any("error", err), slog.String("path", r.URL.Path))
	if fallback == "" {
		fallback = MsgGenericError
	}
	return api.Message(err, fallback), false
}
