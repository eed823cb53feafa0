package categories_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/masterdata/categories"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

func setup(t *testing.T) (*webtest.Env, http.Handler) {
	t.Helper()
	env := webtest.New(t)
	h := categories.NewHandler(nil, env.API, env.Pages, env.RBAC, nil)
	return env, env.Router(func(r chi.Router) { r.Route("/categories", h.MountRoutes) })
}

func TestSalesStaffCannotOpenCategories(t *testing.T) {
	env, router := setup(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/categories", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/403", rec.Header().Get("Location"))
}

func TestListCategories(t *testing.T) {
	env, router := setup(t)
	env.Handle("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Category{{ID: 1, Name: "Áo", Description: "Áo các loại"}})
	})
	cookie := env.SignIn(t, api.RoleWarehouseStaff)

	rec := env.Do(t, router, http.MethodGet, "/categories", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Áo các loại")
	assert.Contains(t, rec.Body.String(), "/categories/1/edit")
}

func TestCreateConflictKeepsInput(t *testing.T) {
	env, router := setup(t)
	env.Handle("POST /categories", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusConflict, map[string]string{"message": "Danh mục đã tồn tại"})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodPost, "/categories", url.Values{"name": {"Áo"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Danh mục đã tồn tại")
	assert.Contains(t, rec.Body.String(), `value="Áo"`)
}

func TestUpdateSendsTrimmedFields(t *testing.T) {
	env, router := setup(t)
	var got api.CategoryRequest
	env.Handle("PUT /categories/4", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		webtest.JSON(w, http.StatusOK, api.Category{ID: 4, Name: got.Name})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodPost, "/categories/4/edit", url.Values{"name": {"  Giày  "}, "description": {"dép"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Giày", got.Name)
	flash := env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
}

func TestEditUnknownCategoryFlashes(t *testing.T) {
	env, router := setup(t)
	env.Handle("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Category{})
	})
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodGet, "/categories/99/edit", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/categories", rec.Header().Get("Location"))
}
