package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/cart"
	"github.com/salesdesk/salesdesk/internal/sales/orders"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/testing/webtest"
)

type outcomes struct {
	mu   sync.Mutex
	seen []string
}

func (o *outcomes) ObserveOrderSubmit(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, outcome)
}

type fixture struct {
	env      *webtest.Env
	carts    *cart.RedisStore
	outcomes *outcomes
	router   http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := webtest.New(t)
	carts := cart.NewRedisStore(env.Redis, 0)
	seen := &outcomes{}
	h := orders.NewHandler(orders.Deps{
		Backend:     env.API,
		Carts:       carts,
		Pages:       env.Pages,
		RBAC:        env.RBAC,
		Idempotency: shared.NewRedisIdempotencyStore(env.Redis, time.Hour),
		Observer:    seen,
	})
	env.Handle("GET /products/3", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Product{ID: 3, Name: "Giày da", Price: 900000, StockQuantity: 1})
	})
	env.Handle("GET /products/4", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Product{ID: 4, Name: "Dép", Price: 100000, StockQuantity: 0})
	})
	return &fixture{env: env, carts: carts, outcomes: seen, router: env.Router(h.MountRoutes)}
}

func (f *fixture) fill(t *testing.T, cookie *http.Cookie) {
	t.Helper()
	_, err := f.carts.Update(context.Background(), cookie.Value, func(c *cart.Cart) error {
		c.SetCustomer(&cart.Customer{ID: 11, FullName: "Nguyễn Văn A", PhoneNumber: "0901234567"})
		c.AddProduct(cart.Product{ID: 3, Name: "Giày da", Price: 900000, StockQuantity: 5})
		c.UpdateQuantity(3, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestWarehouseStaffCannotSell(t *testing.T) {
	f := setup(t)
	cookie := f.env.SignIn(t, api.RoleWarehouseStaff)

	rec := f.env.Do(t, f.router, http.MethodGet, "/orders/new", nil, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/403", rec.Header().Get("Location"))
}

func TestAddItemStopsAtStockCeiling(t *testing.T) {
	f := setup(t)
	cookie := f.env.SignIn(t, api.RoleSalesStaff)

	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/new/items", url.Values{"productId": {"3"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, f.env.Flash(t, cookie))

	rec = f.env.Do(t, f.router, http.MethodPost, "/orders/new/items", url.Values{"productId": {"3"}, "q": {"giày"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders/new?q=gi%C3%A0y", rec.Header().Get("Location"))
	flash := f.env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashWarning, flash.Kind)

	c, err := f.carts.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 1, snap.Lines[0].Quantity)
}

func TestAddOutOfStockProductIsIgnored(t *testing.T) {
	f := setup(t)
	cookie := f.env.SignIn(t, api.RoleSalesStaff)

	f.env.Do(t, f.router, http.MethodPost, "/orders/new/items", url.Values{"productId": {"4"}}, cookie)

	flash := f.env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, "Sản phẩm đã hết hàng", flash.Message)
	c, err := f.carts.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.True(t, c.Snapshot().IsEmpty())
}

func TestUpdateQuantityClampsToCeiling(t *testing.T) {
	f := setup(t)
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.fill(t, cookie)

	f.env.Do(t, f.router, http.MethodPost, "/orders/new/items/3", url.Values{"quantity": {"50"}}, cookie)

	c, err := f.carts.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Snapshot().Lines[0].Quantity)
}

func TestSubmitWithoutCustomerSkipsBackend(t *testing.T) {
	f := setup(t)
	called := false
	f.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) { called = true })
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.env.Do(t, f.router, http.MethodPost, "/orders/new/items", url.Values{"productId": {"3"}}, cookie)

	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/new/submit", url.Values{"idempotencyKey": {"k-1"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, called)
	flash := f.env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, cart.MsgMissingSelection, flash.Message)
	assert.Equal(t, []string{orders.OutcomeIncomplete}, f.outcomes.seen)
	assert.False(t, f.env.Mini.Exists("idempotency:k-1"), "key is released for a retry")
}

func TestSubmitSendsCartAndClearsIt(t *testing.T) {
	f := setup(t)
	var got api.OrderCreateRequest
	f.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		webtest.JSON(w, http.StatusCreated, map[string]int64{"id": 42})
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.fill(t, cookie)

	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/new/submit", url.Values{"idempotencyKey": {"k-2"}}, cookie)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders/42", rec.Header().Get("Location"))
	assert.Equal(t, int64(11), got.CustomerID)
	assert.Equal(t, []api.OrderItemRequest{{ProductID: 3, Quantity: 2}}, got.Items)

	c, err := f.carts.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.True(t, snap.IsEmpty())
	assert.Nil(t, snap.Customer)
	assert.Equal(t, cart.StatusSuccess, snap.Status)
	assert.Equal(t, []string{orders.OutcomeSuccess}, f.outcomes.seen)
}

func TestReplayedSubmissionIsRejected(t *testing.T) {
	f := setup(t)
	calls := 0
	f.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		calls++
		webtest.JSON(w, http.StatusCreated, 42)
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.fill(t, cookie)
	form := url.Values{"idempotencyKey": {"k-3"}}

	f.env.Do(t, f.router, http.MethodPost, "/orders/new/submit", form, cookie)
	f.fill(t, cookie)
	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/new/submit", form, cookie)

	assert.Equal(t, "/orders/new", rec.Header().Get("Location"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{orders.OutcomeSuccess, orders.OutcomeDuplicate}, f.outcomes.seen)
}

func TestSubmitFailureKeepsCartAndShowsServerMessage(t *testing.T) {
	f := setup(t)
	f.env.Handle("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusBadRequest, map[string]string{"message": "Không đủ tồn kho cho sản phẩm Giày da"})
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.fill(t, cookie)

	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/new/submit", url.Values{"idempotencyKey": {"k-4"}}, cookie)

	assert.Equal(t, "/orders/new", rec.Header().Get("Location"))
	flash := f.env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, "Không đủ tồn kho cho sản phẩm Giày da", flash.Message)

	c, err := f.carts.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, cart.StatusError, snap.Status)
	assert.Len(t, snap.Lines, 1)
	assert.False(t, f.env.Mini.Exists("idempotency:k-4"))
}

func TestNewOrderPageRendersCart(t *testing.T) {
	f := setup(t)
	f.env.Handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, webtest.Page([]api.Product{{ID: 3, SKU: "G-1", Name: "Giày da", Price: 900000, StockQuantity: 5}}, 0, 1))
	})
	f.env.Handle("GET /customers/search", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, []api.Customer{})
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)
	f.fill(t, cookie)

	rec := f.env.Do(t, f.router, http.MethodGet, "/orders/new?phone=0999", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Nguyễn Văn A")
	assert.Contains(t, body, "1.800.000 VNĐ")
	assert.Contains(t, body, `name="idempotencyKey"`)
}

func TestCustomerQueryParamSelectsCustomer(t *testing.T) {
	f := setup(t)
	f.env.Handle("GET /customers/11", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Customer{ID: 11, FullName: "Trần Thị B", PhoneNumber: "0912345678"})
	})
	f.env.Handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, webtest.Page([]api.Product{}, 0, 0))
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)

	rec := f.env.Do(t, f.router, http.MethodGet, "/orders/new?customer=11", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Trần Thị B")
}

func TestCancelOrder(t *testing.T) {
	f := setup(t)
	cancelled := false
	f.env.Handle("PUT /orders/42/cancel", func(w http.ResponseWriter, r *http.Request) {
		cancelled = true
		w.WriteHeader(http.StatusNoContent)
	})
	cookie := f.env.SignIn(t, api.RoleAdmin)

	rec := f.env.Do(t, f.router, http.MethodPost, "/orders/42/cancel", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders/42", rec.Header().Get("Location"))
	assert.True(t, cancelled)
}

func TestOrderListShowsStatusLabels(t *testing.T) {
	f := setup(t)
	f.env.Handle("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, webtest.Page([]api.Order{
			{ID: 1, CustomerName: "Nguyễn Văn A", TotalAmount: 500000, Status: api.OrderCancelled},
		}, 0, 1))
	})
	cookie := f.env.SignIn(t, api.RoleSalesStaff)

	rec := f.env.Do(t, f.router, http.MethodGet, "/orders/list", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Đã hủy")
	assert.Contains(t, rec.Body.String(), "500.000 VNĐ")
}

type stubInvoices struct {
	order api.Order
	err   error
}

func (s *stubInvoices) PDF(ctx context.Context, order api.Order) ([]byte, error) {
	s.order = order
	return []byte("%PDF-1.7"), s.err
}

func invoiceRouter(t *testing.T, printer orders.InvoicePrinter) (*webtest.Env, http.Handler) {
	t.Helper()
	env := webtest.New(t)
	h := orders.NewHandler(orders.Deps{
		Backend:  env.API,
		Carts:    cart.NewRedisStore(env.Redis, 0),
		Pages:    env.Pages,
		RBAC:     env.RBAC,
		Invoices: printer,
	})
	env.Handle("GET /orders/42", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.Order{ID: 42, CustomerName: "Nguyễn Văn A", TotalAmount: 900000, Status: api.OrderCompleted})
	})
	return env, env.Router(h.MountRoutes)
}

func TestInvoiceStreamsPDF(t *testing.T) {
	printer := &stubInvoices{}
	env, router := invoiceRouter(t, printer)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/orders/42/invoice.pdf", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "hoa-don-42.pdf")
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, "Nguyễn Văn A", printer.order.CustomerName)
}

func TestInvoiceFailureFlashesError(t *testing.T) {
	env, router := invoiceRouter(t, &stubInvoices{err: errors.New("gotenberg down")})
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/orders/42/invoice.pdf", nil, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders/42", rec.Header().Get("Location"))
	flash := env.Flash(t, cookie)
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashError, flash.Kind)
}

func TestInvoiceLinkHiddenWithoutPrinter(t *testing.T) {
	env, router := invoiceRouter(t, nil)
	cookie := env.SignIn(t, api.RoleSalesStaff)

	rec := env.Do(t, router, http.MethodGet, "/orders/42", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "invoice.pdf")

	rec = env.Do(t, router, http.MethodGet, "/orders/42/invoice.pdf", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
