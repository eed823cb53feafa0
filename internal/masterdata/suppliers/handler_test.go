package suppliers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/masterdata/suppliers"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

func setup(t *testing.T) (*webtest.Env, http.Handler) {
	t.Helper()
	env := webtest.New(t)
	h := suppliers.NewHandler(nil, env.API, env.Pages, env.RBAC, nil)
	return env, env.Router(func(r chi.Router) { r.Route("/suppliers", h.MountRoutes) })
}

func TestListSuppliersSortedByName(t *testing.T) {
	env, router := setup(t)
	env.Handle("GET /suppliers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "name", r.URL.Query().Get("sort"))
		webtest.JSON(w, http.StatusOK, webtest.Page([]api.Supplier{{ID: 2, Name: "Công ty May Việt", IsActive: true}}, 0, 1))
	})
	cookie := env.SignIn(t, api.RoleWarehouseStaff)

	rec := env.Do(t, router, http.MethodGet, "/suppliers", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Công ty May Việt")
	assert.Contains(t, rec.Body.String(), "Hoạt động")
}

func TestSalesStaffIsDenied(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)
	rec := env.Do(t, router, http.MethodGet, "/suppliers", nil, cookie)
	assert.Equal(t, "/403", rec.Header().Get("Location"))
}

func TestCreateRejectsBadEmail(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleAdmin)
	rec := env.Do(t, router, http.MethodPost, "/suppliers", url.Values{"name": {"NCC A"}, "email": {"sai"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email không hợp lệ")
}

func TestCreateSendsActiveFlag(t *testing.T) {
	env, router := setup(t)
	var got api.SupplierRequest
	env.Handle("POST /suppliers", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		webtest.JSON(w, http.StatusCreated, api.Supplier{ID: 5, Name: got.Name})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	form := url.Values{"name": {"NCC A"}, "phoneNumber": {"0901234567"}, "isActive": {"on"}}
	rec := env.Do(t, router, http.MethodPost, "/suppliers", form, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, got.IsActive)
	assert.Equal(t, "0901234567", got.PhoneNumber)
}
