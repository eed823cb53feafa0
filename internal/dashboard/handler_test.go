package dashboard_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/dashboard"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

func setup(t *testing.T) (*webtest.Env, http.Handler, *int) {
	t.Helper()
	env := webtest.New(t)
	calls := 0
	env.Handle("GET /dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.NotEmpty(t, r.URL.Query().Get("startDate"))
		webtest.JSON(w, http.StatusOK, api.DashboardStats{
			TotalRevenueToday: 1250000,
			TotalOrdersToday:  4,
			NewCustomersToday: 2,
			TopSellingProducts: []api.TopSellingItem{
				{ProductID: 7, ProductName: "Áo thun cotton", TotalSold: 42},
				{ProductID: 3, ProductName: "Giày da", TotalSold: 17},
			},
		})
	})
	env.Handle("GET /products/low-stock", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Product{{ID: 3, SKU: "G-1", Name: "Giày da", StockQuantity: 2}})
	})
	svc := dashboard.NewService(env.API, dashboard.NewCache(env.Redis, time.Minute), 5, nil)
	h := dashboard.NewHandler(nil, svc, env.Pages)
	return env, env.Router(func(r chi.Router) { r.Get("/", h.Home) }), &calls
}

func TestAdminSeesOverview(t *testing.T) {
	env, router, calls := setup(t)
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodGet, "/", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1.250.000 VNĐ")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Áo thun cotton")
	assert.Contains(t, body, "/warehouse/receipts?product=3")
	assert.Equal(t, 1, *calls)

	env.Do(t, router, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, 1, *calls, "second view is served from the cache")
}

func TestSalesStaffGetsGreeting(t *testing.T) {
	env, router, calls := setup(t)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Chào mừng, Nhân viên Test!")
	assert.NotContains(t, rec.Body.String(), "Doanh thu")
	assert.Equal(t, 0, *calls)
}

func TestRejectedTokenOnDashboardSignsOut(t *testing.T) {
	env := webtest.New(t)
	env.Handle("GET /dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	env.Handle("GET /products/low-stock", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Product{})
	})
	h := dashboard.NewHandler(nil, dashboard.NewService(env.API, nil, 5, nil), env.Pages)
	router := env.Router(func(r chi.Router) { r.Get("/", h.Home) })
	cookie := env.SignIn(t, api.RoleAdmin)

	rec := env.Do(t, router, http.MethodGet, "/", nil, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}
