// Package webtest wires a console handler against a fake backend for tests:
// Redis sessions on miniredis, a real API client pointed at an httptest
// server, and the same session and holder middleware the console uses.
package webtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	_ "github.com/salesdesk/salesdesk/internal/testing/guard"
	"github.com/salesdesk/salesdesk/internal/view"
)

const cookieName = "sd_test"

// Env bundles the collaborators a handler needs.
type Env struct {
	Mini     *miniredis.Miniredis
	Redis    *redis.Client
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	Pages    *view.Responder
	Menu     []rbac.MenuNode
	RBAC     rbac.Middleware
	Backend  *http.ServeMux
	Server   *httptest.Server
	API      *api.Client
}

// New starts the fake backend and Redis.
func New(t *testing.T) *Env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	menu, err := rbac.DefaultMenu()
	require.NoError(t, err)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("csrf-test-secret")
	client, err := api.New(srv.URL+"/api/v1", api.WithCredentials(session.Credentials))
	require.NoError(t, err)

	return &Env{
		Mini:     mr,
		Redis:    rdb,
		Sessions: shared.NewSessionManager(rdb, cookieName, "session-test-secret", time.Hour, false),
		CSRF:     csrf,
		Pages:    view.NewResponder(engine, csrf, menu, nil),
		Menu:     menu,
		RBAC:     rbac.Middleware{Policy: rbac.NewPolicy(menu)},
		Backend:  mux,
		Server:   srv,
		API:      client,
	}
}

// Handle registers a fake backend route relative to /api/v1, for example
// "GET /products".
func (e *Env) Handle(pattern string, fn http.HandlerFunc) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		path, method = pattern, ""
	}
	full := "/api/v1" + path
	if method != "" {
		full = method + " " + full
	}
	e.Backend.HandleFunc(full, fn)
}

// Router wraps mount with the console's session and holder middleware.
func (e *Env) Router(mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(e.Sessions.Middleware(nil))
	r.Use(session.Middleware(session.MiddlewareConfig{Auth: e.API, Revalidate: time.Hour}))
	mount(r)
	return r
}

// SignIn stores a signed-in session for role and returns its cookie.
func (e *Env) SignIn(t *testing.T, role string) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	sess, err := e.Sessions.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	identity, err := json.Marshal(api.Identity{Email: "staff@shop.vn", FullName: "Nhân viên Test", Role: role})
	require.NoError(t, err)
	sess.Set(session.KeyToken, "test-token")
	sess.Set(session.KeyUser, string(identity))
	session.MarkChecked(sess, time.Now())

	rec := httptest.NewRecorder()
	require.NoError(t, e.Sessions.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("session cookie not issued")
	return nil
}

// Do sends a request through h. A non-nil form is posted url-encoded.
func (e *Env) Do(t *testing.T, h http.Handler, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Session reloads the stored session behind cookie.
func (e *Env) Session(t *testing.T, cookie *http.Cookie) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := e.Sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

// Flash pops the next flash message stored behind cookie.
func (e *Env) Flash(t *testing.T, cookie *http.Cookie) *shared.FlashMessage {
	t.Helper()
	return e.Session(t, cookie).PopFlash()
}

// JSON writes v as a backend response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Page wraps items in the backend's page envelope.
func Page[T any](items []T, number, totalPages int) api.Page[T] {
	return api.Page[T]{Content: items, Number: number, Size: api.DefaultPageSize, TotalPages: totalPages, TotalElements: int64(len(items))}
}
