package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListCustomers(ctx context.Context, page, size int) (Page[Customer], error) {
	var out Page[Customer]
	err := c.do(ctx, call{method: http.MethodGet, path: "/customers", query: pageQuery(page, size)}, &out)
	return out, err
}

// SearchCustomers finds customers by (partial) phone number.
func (c *Client) SearchCustomers(ctx context.Context, phone string) ([]Customer, error) {
	var out []Customer
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/customers/search",
		query:  url.Values{"phone": {phone}},
	}, &out)
	return out, err
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var out Customer
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/customers/%d", id)}, &out)
	return out, err
}

// CreateCustomer returns a 409 Error when the phone number is already taken.
func (c *Client) CreateCustomer(ctx context.Context, in CustomerRequest) (Customer, error) {
	var out Customer
	err := c.do(ctx, call{method: http.MethodPost, path: "/customers", body: in}, &out)
	return out, err
}

func (c *Client) UpdateCustomer(ctx context.Context, id int64, in CustomerRequest) (Customer, error) {
	var out Customer
	err := c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/customers/%d", id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/customers/%d", id)}, nil)
}

// ListSuppliers returns suppliers sorted by name.
func (c *Client) ListSuppliers(ctx context.Context, page, size int) (Page[Supplier], error) {
	q := pageQuery(page, size)
	q.Set("sort", "name")
	var out Page[Supplier]
	err := c.do(ctx, call{method: http.MethodGet, path: "/suppliers", query: q}, &out)
	return out, err
}

// AllSuppliers walks every supplier page. Used by invoice matching, which
// needs the full list.
func (c *Client) AllSuppliers(ctx context.Context) ([]Supplier, error) {
	const size = 100
	var all []Supplier
	for page := 0; ; page++ {
		p, err := c.ListSuppliers(ctx, page, size)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Content...)
		if page+1 >= p.TotalPages || len(p.Content) == 0 {
			return all, nil
		}
	}
}

func (c *Client) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/suppliers/%d", id)}, &out)
	return out, err
}

func (c *Client) CreateSupplier(ctx context.Context, in SupplierRequest) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, call{method: http.MethodPost, path: "/suppliers", body: in}, &out)
	return out, err
}

func (c *Client) UpdateSupplier(ctx context.Context, id int64, in SupplierRequest) (Supplier, error) {
	var out Supplier
	err := c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/suppliers/%d", id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteSupplier(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/suppliers/%d", id)}, nil)
}
