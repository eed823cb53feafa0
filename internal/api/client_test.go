package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
)

type fakeCreds struct {
	token   string
	logouts atomic.Int32
}

func (f *fakeCreds) Token() string { return f.token }

func (f *fakeCreds) ForceLogout(ctx context.Context) {
	f.logouts.Add(1)
	f.token = ""
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveAPICall(method, endpoint string, status int, elapsed time.Duration) {
	o.calls = append(o.calls, method+" "+endpoint)
}

func newClient(t *testing.T, handler http.HandlerFunc, creds api.Credentials, opts ...api.Option) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	all := append([]api.Option{api.WithCredentials(func(context.Context) api.Credentials { return creds })}, opts...)
	client, err := api.New(srv.URL+"/api/v1", all...)
	require.NoError(t, err)
	return client
}

func TestClientAttachesBearerToken(t *testing.T) {
	creds := &fakeCreds{token: "abc"}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.Identity{Email: "a@b.vn", FullName: "An", Role: api.RoleAdmin})
	}, creds)

	id, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.RoleAdmin, id.Role)
}

func TestClientForcesLogoutOnUnauthorized(t *testing.T) {
	creds := &fakeCreds{token: "stale"}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	}, creds)

	_, err := client.ListProducts(context.Background(), api.ProductFilter{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Token expired", api.Message(err, "fallback"))
	assert.EqualValues(t, 1, creds.logouts.Load())
}

func TestLoginIsAnonymousAndDoesNotForceLogout(t *testing.T) {
	creds := &fakeCreds{token: "old"}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}, creds)

	_, err := client.Login(context.Background(), "a@b.vn", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Zero(t, creds.logouts.Load())
}

func TestCreateOrderSendsNoPriceAndDecodesBareID(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"customerId":7,"items":[{"productId":1,"quantity":2}]}`, string(raw))
		_, _ = w.Write([]byte("42"))
	}, &fakeCreds{token: "t"})

	id, err := client.CreateOrder(context.Background(), api.OrderCreateRequest{
		CustomerID: 7,
		Items:      []api.OrderItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestListProductsQueryAndObserver(t *testing.T) {
	obs := &recordingObserver{}
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("size"))
		assert.Equal(t, "áo", q.Get("search"))
		assert.Equal(t, "3", q.Get("categoryId"))
		_ = json.NewEncoder(w).Encode(api.Page[api.Product]{
			Content:    []api.Product{{ID: 1, Name: "Áo thun", StockQuantity: 4}},
			TotalPages: 3,
			Number:     2,
		})
	}, nil, api.WithObserver(obs))

	page, err := client.ListProducts(context.Background(), api.ProductFilter{Page: 2, Search: "áo", CategoryID: 3})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, []string{"GET /products"}, obs.calls)
}

func TestConflictMessage(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Số điện thoại đã tồn tại"}`))
	}, nil)

	_, err := client.CreateCustomer(context.Background(), api.CustomerRequest{FullName: "B", PhoneNumber: "0901"})
	require.Error(t, err)
	assert.True(t, api.IsConflict(err))
	assert.Equal(t, "Số điện thoại đã tồn tại", api.Message(err, "x"))
}

func TestScanInvoiceUsesMultipart(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "invoice.jpg", header.Filename)
		_, _ = w.Write([]byte(`{"supplierName":"Cty ABC","items":[{"productName":"Sữa","quantity":3,"unitPrice":10000}]}`))
	}, &fakeCreds{token: "t"})

	scan, err := client.ScanInvoice(context.Background(), "invoice.jpg", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "Cty ABC", scan.SupplierName)
	require.Len(t, scan.Items, 1)
}

func TestResolveURL(t *testing.T) {
	client, err := api.New("http://backend:8080/api/v1")
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8080/uploads/a.png", client.ResolveURL("/uploads/a.png"))
	assert.Equal(t, "https://cdn/x.png", client.ResolveURL("https://cdn/x.png"))
}

func TestTimestampParsesLocalDateTime(t *testing.T) {
	var order api.Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"orderDate":"2024-05-01T10:30:00"}`), &order))
	assert.Equal(t, 2024, order.OrderDate.Year())
	assert.Equal(t, 30, order.OrderDate.Minute())
}
