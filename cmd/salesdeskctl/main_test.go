package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

type harness struct {
	env   *webtest.Env
	state string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv(passwordEnv, "")
	env := webtest.New(t)
	env.Handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			webtest.JSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		webtest.JSON(w, http.StatusOK, api.LoginResponse{Token: "cli-token", Email: body["email"], FullName: "Nguyễn Văn A", Role: api.RoleSalesStaff})
	})
	return &harness{env: env, state: filepath.Join(t.TempDir(), "state.json")}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--state", h.state, "--api", h.env.Server.URL + "/api/v1"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.run(t, "secret\n", "login", "--email", "a@shop.vn")
	require.NoError(t, err)
}

func TestLoginPersistsTokenAndWhoami(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "secret\n", "login", "--email", "a@shop.vn")
	require.NoError(t, err)
	assert.Contains(t, out, "Nguyễn Văn A")

	raw, err := os.ReadFile(h.state)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cli-token")

	out, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Nguyễn Văn A <a@shop.vn>")
}

func TestLoginBadPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "wrong\n", "login", "--email", "a@shop.vn")
	require.Error(t, err)

	_, err = h.run(t, "", "whoami")
	assert.ErrorContains(t, err, "not signed in")
}

func TestLogoutForgetsToken(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, err := h.run(t, "", "logout")
	require.NoError(t, err)

	raw, err := os.ReadFile(h.state)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "cli-token")
}

func TestMenuIsFilteredByRole(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, err := h.run(t, "", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "/orders")
	assert.NotContains(t, out, "/users")
}

func TestProductsList(t *testing.T) {
	h := newHarness(t)
	h.env.Handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cli-token", r.Header.Get("Authorization"))
		assert.Equal(t, "0", r.URL.Query().Get("page"))
		webtest.JSON(w, http.StatusOK, webtest.Page([]api.Product{
			{ID: 7, SKU: "AT-01", Name: "Áo thun", Price: 1250000, CategoryName: "Áo", StockQuantity: 3},
		}, 0, 1))
	})
	h.login(t)

	out, err := h.run(t, "", "products", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Áo thun")
	assert.Contains(t, out, "1.250.000 VNĐ")
	assert.Contains(t, out, "Trang 1 / 1")
}

func TestExpiredTokenIsDropped(t *testing.T) {
	h := newHarness(t)
	h.env.Handle("GET /products/low-stock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.login(t)

	_, err := h.run(t, "", "products", "low-stock")
	assert.ErrorContains(t, err, "session expired")

	_, err = h.run(t, "", "whoami")
	assert.ErrorContains(t, err, "not signed in")
}

func TestOrdersCreateCapsQuantityAtStock(t *testing.T) {
	h := newHarness(t)
	h.env.Handle("GET /customers/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0901234567", r.URL.Query().Get("phone"))
		webtest.JSON(w, http.StatusOK, []api.Customer{
			{ID: 4, FullName: "Trần Thị B", PhoneNumber: "0901234567"},
		})
	})
	h.env.Handle("GET /products/7", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Product{ID: 7, Name: "Áo thun", Price: 100000, StockQuantity: 3})
	})
	h.env.Handle("GET /products/9", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Product{ID: 9, Name: "Giày da", Price: 500000, StockQuantity: 10})
	})
	var got api.OrderCreateRequest
	h.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		webtest.JSON(w, http.StatusCreated, 42)
	})
	h.login(t)

	out, err := h.run(t, "", "orders", "create", "--customer-phone", "0901234567", "--item", "7:5", "--item", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, "800.000 VNĐ")

	assert.Equal(t, int64(4), got.CustomerID)
	assert.Equal(t, []api.OrderItemRequest{{ProductID: 7, Quantity: 3}, {ProductID: 9, Quantity: 1}}, got.Items)
}

func TestOrdersCreateRejectsOutOfStock(t *testing.T) {
	h := newHarness(t)
	h.env.Handle("GET /customers/search", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Customer{{ID: 4, FullName: "Trần Thị B", PhoneNumber: "0901234567"}})
	})
	h.env.Handle("GET /products/7", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Product{ID: 7, Name: "Áo thun", Price: 100000})
	})
	called := false
	h.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) { called = true })
	h.login(t)

	_, err := h.run(t, "", "orders", "create", "--customer-phone", "0901234567", "--item", "7:1")
	assert.ErrorContains(t, err, "hết hàng")
	assert.False(t, called)
}

func TestParseOrderItem(t *testing.T) {
	item, err := parseOrderItem("12:4")
	require.NoError(t, err)
	assert.Equal(t, orderItem{productID: 12, quantity: 4}, item)

	item, err = parseOrderItem("12")
	require.NoError(t, err)
	assert.Equal(t, 1, item.quantity)

	for _, bad := range []string{"x:1", "0:1", "3:0", "3:-2"} {
		_, err := parseOrderItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestJobsTriggerNeedsAdmin(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, err := h.run(t, "", "jobs", "trigger", "inventory:low_stock_scan")
	assert.ErrorContains(t, err, "may not")
}

func TestJobsList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "jobs", "list")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:warmup\ninventory:low_stock_scan\nledger:cleanup\n", out)
}
