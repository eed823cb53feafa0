package users_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
	"github.com/salesdesk/salesdesk/internal/users"
)

// The signed-in test user is staff@shop.vn.
var staff = []api.User{
	{ID: 1, FullName: "Nhân viên Test", Email: "staff@shop.vn", RoleName: api.RoleAdmin, RoleID: 1, IsActive: true},
	{ID: 2, FullName: "Kho Một", Email: "kho1@shop.vn", RoleName: api.RoleWarehouseStaff, RoleID: 3, IsActive: true},
}

func setup(t *testing.T) (*webtest.Env, http.Handler) {
	t.Helper()
	env := webtest.New(t)
	h := users.NewHandler(nil, env.API, env.Pages, env.RBAC, nil)
	env.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, webtest.Page(staff, 0, 1))
	})
	return env, env.Router(func(r chi.Router) { r.Route("/users", h.MountRoutes) })
}

func TestOnlyAdminsManageUsers(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/users", nil, cookie)

	assert.Equal(t, "/403", rec.Header().Get("Location"))
}

func TestListHidesActionsOnOwnAccount(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodGet, "/users", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "kho1@shop.vn")
	assert.Contains(t, body, "/users/2/delete")
	assert.NotContains(t, body, "/users/1/delete")
	assert.Contains(t, body, "tag-orange")
}

func TestDeleteOwnAccountIsRefused(t *testing.T) {
	env, router := setup(t)
	called := false
	env.Handle("DELETE /users/1", func(w http.ResponseWriter, r *http.Request) { called = true })
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodPost, "/users/1/delete", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, called)
	flash := env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, users.MsgSelfAction, flash.Message)
}

func TestToggleOtherAccount(t *testing.T) {
	env, router := setup(t)
	toggled := false
	env.Handle("PUT /users/2/toggle-status", func(w http.ResponseWriter, r *http.Request) {
		toggled = true
		w.WriteHeader(http.StatusOK)
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodPost, "/users/2/toggle", url.Values{}, cookie)

	assert.Equal(t, "/users", rec.Header().Get("Location"))
	assert.True(t, toggled)
	flash := env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
}

func TestUnknownUserIsReported(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleAdmin)

	env.Do(t, router, http.MethodPost, "/users/99/delete", url.Values{}, cookie)

	flash := env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashError, flash.Kind)
}

func TestCreateUser(t *testing.T) {
	env, router := setup(t)
	var got api.UserCreateRequest
	env.Handle("POST /users", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		webtest.JSON(w, http.StatusCreated, api.User{ID: 5, Email: got.Email})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	form := url.Values{"fullName": {"Bán Hàng"}, "email": {"Ban@Shop.vn"}, "password": {"secret1"}, "roleId": {"2"}}
	rec := env.Do(t, router, http.MethodPost, "/users", form, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "ban@shop.vn", got.Email)
	assert.Equal(t, int64(2), got.RoleID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	env, router := setup(t)
	env.Handle("POST /users", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusConflict, map[string]string{"message": "Email đã được sử dụng"})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	form := url.Values{"fullName": {"Bán Hàng"}, "email": {"ban@shop.vn"}, "password": {"secret1"}, "roleId": {"2"}}
	rec := env.Do(t, router, http.MethodPost, "/users", form, cookie)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email đã được sử dụng")
	assert.NotContains(t, rec.Body.String(), "secret1")
}

func TestCreateValidation(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodPost, "/users", url.Values{"email": {"x"}, "password": {"123"}, "roleId": {"9"}}, cookie)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mật khẩu tối thiểu 6 ký tự")
	assert.Contains(t, body, "Vui lòng chọn vai trò")
}
