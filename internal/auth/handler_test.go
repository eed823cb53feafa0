package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

type recordingCarts struct {
	dropped []string
}

func (r *recordingCarts) Delete(ctx context.Context, id string) error {
	r.dropped = append(r.dropped, id)
	return nil
}

func newRouter(env *webtest.Env, carts auth.CartDropper) http.Handler {
	handler := auth.NewHandler(nil, env.Pages, env.Sessions, carts)
	return env.Router(func(r chi.Router) {
		r.Route("/auth", handler.MountRoutes)
		r.Group(func(r chi.Router) {
			r.Use(env.RBAC.RequireAuthenticated())
			r.Route("/profile", handler.MountProfileRoutes)
		})
		r.Get("/403", handler.Forbidden)
	})
}

func sessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == "sd_test" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestLoginPage(t *testing.T) {
	env := webtest.New(t)
	rec := env.Do(t, newRouter(env, nil), http.MethodGet, "/auth/login", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := webtest.New(t)
	env.Handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})

	form := url.Values{"email": {"user@shop.vn"}, "password": {"wrongpass"}}
	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/auth/login", form, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.MsgBadCredentials)
	assert.Contains(t, rec.Body.String(), `value="user@shop.vn"`)
}

func TestLoginValidationSkipsBackend(t *testing.T) {
	env := webtest.New(t)
	called := false
	env.Handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/auth/login", url.Values{"email": {"not-an-email"}}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email không hợp lệ!")
	assert.Contains(t, rec.Body.String(), "Vui lòng nhập Mật khẩu!")
	assert.False(t, called)
}

func TestLoginSuccessStoresIdentityAndRedirects(t *testing.T) {
	env := webtest.New(t)
	env.Handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@shop.vn", body["email"])
		assert.Empty(t, r.Header.Get("Authorization"))
		webtest.JSON(w, http.StatusOK, api.LoginResponse{Token: "jwt-1", Email: "admin@shop.vn", FullName: "Quản trị", Role: api.RoleAdmin})
	})

	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/auth/login", url.Values{"email": {"admin@shop.vn"}, "password": {"secret"}}, nil)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sess := env.Session(t, sessionCookie(t, rec.Result()))
	assert.Equal(t, "jwt-1", sess.Get(session.KeyToken))
	assert.Contains(t, sess.Get(session.KeyUser), "Quản trị")
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	env := webtest.New(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, newRouter(env, nil), http.MethodGet, "/auth/login", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogoutDiscardsSessionAndCart(t *testing.T) {
	env := webtest.New(t)
	carts := &recordingCarts{}
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, newRouter(env, carts), http.MethodPost, "/auth/logout", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	assert.Equal(t, []string{cookie.Value}, carts.dropped)
	assert.Empty(t, env.Session(t, cookie).Get(session.KeyToken))
}

func TestProfileRequiresSignIn(t *testing.T) {
	env := webtest.New(t)
	rec := env.Do(t, newRouter(env, nil), http.MethodGet, "/profile", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestProfileUpdateRenamesUser(t *testing.T) {
	env := webtest.New(t)
	env.Handle("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		webtest.JSON(w, http.StatusOK, api.Identity{Email: "staff@shop.vn", FullName: "Lê Văn C", Role: api.RoleSalesStaff})
	})
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/profile", url.Values{"fullName": {"Lê Văn C"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	sess := env.Session(t, cookie)
	assert.Contains(t, sess.Get(session.KeyUser), "Lê Văn C")
}

func TestChangePasswordMismatchRendersError(t *testing.T) {
	env := webtest.New(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	form := url.Values{"oldPassword": {"old"}, "newPassword": {"abcdef"}, "confirmPassword": {"abcdeg"}}
	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/profile/password", form, cookie)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mật khẩu xác nhận không khớp!")
}

func TestBackendRejectionForcesLogout(t *testing.T) {
	env := webtest.New(t)
	env.Handle("POST /auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	form := url.Values{"oldPassword": {"old"}, "newPassword": {"abcdef"}, "confirmPassword": {"abcdef"}}
	rec := env.Do(t, newRouter(env, nil), http.MethodPost, "/profile/password", form, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	sess := env.Session(t, cookie)
	assert.Empty(t, sess.Get(session.KeyToken))
	assert.Empty(t, sess.Get(session.KeyUser))
}

func TestForbiddenPage(t *testing.T) {
	env := webtest.New(t)
	cookie := env.SignIn(t, api.RoleWarehouseStaff)
	rec := env.Do(t, newRouter(env, nil), http.MethodGet, "/403", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "403")
	assert.True(t, strings.Contains(body, "Nhập kho"), "menu is rendered for the signed-in role")
	assert.False(t, strings.Contains(body, "Nhân viên</a>"))
}
