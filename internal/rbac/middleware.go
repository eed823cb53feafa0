package rbac

import (
	"log/slog"
	"net/http"

	"github.com/salesdesk/salesdesk/internal/session"
)

// DefaultLoginPath receives unauthenticated requests.
const DefaultLoginPath = "/auth/login"

// Middleware wires route guards for HTTP handlers. The role is read from the
// request's session holder, which was resolved once for the request.
type Middleware struct {
	Policy    Policy
	Logger    *slog.Logger
	LoginPath string
}

// RequireAuthenticated redirects anonymous requests to the login page.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentRole(w, r); !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoute guards a handler with the allow-list of the menu entry at
// path, so that the route and its menu entry always agree.
func (m Middleware) RequireRoute(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := m.currentRole(w, r)
			if !ok {
				return
			}
			decision := m.Policy.Allow(path, role)
			if !decision.Allow {
				m.deny(w, r, role, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles guards a handler that has no menu entry of its own, such as
// product editing.
func (m Middleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := append([]string{}, roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := m.currentRole(w, r)
			if !ok {
				return
			}
			decision := GuardRoute(role, allowed)
			if !decision.Allow {
				m.deny(w, r, role, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentRole(w http.ResponseWriter, r *http.Request) (string, bool) {
	holder := session.FromContext(r.Context())
	if holder == nil || !holder.IsAuthenticated() {
		login := m.LoginPath
		if login == "" {
			login = DefaultLoginPath
		}
		http.Redirect(w, r, login, http.StatusSeeOther)
		return "", false
	}
	return holder.Role(), true
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, role string, d Decision) {
	if m.Logger != nil {
		m.Logger.Info("route denied", slog.String("path", r.URL.Path), slog.String("role", role))
	}
	http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
}
