package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultLowStockThreshold is used when callers pass a non-positive threshold.
const DefaultLowStockThreshold = 5

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) (Page[Product], error) {
	q := pageQuery(f.Page, f.Size)
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID > 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	var out Page[Product]
	err := c.do(ctx, call{method: http.MethodGet, path: "/products", query: q}, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/products/%d", id)}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, in ProductRequest) (Product, error) {
	var out Product
	err := c.do(ctx, call{method: http.MethodPost, path: "/products", body: in}, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductRequest) (Product, error) {
	var out Product
	err := c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/products/%d", id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/products/%d", id)}, nil)
}

// LowStockProducts lists products whose stock is at or below threshold.
func (c *Client) LowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	q := url.Values{"threshold": {strconv.Itoa(threshold)}}
	var out []Product
	err := c.do(ctx, call{method: http.MethodGet, path: "/products/low-stock", query: q}, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, call{method: http.MethodGet, path: "/categories"}, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryRequest) (Category, error) {
	var out Category
	err := c.do(ctx, call{method: http.MethodPost, path: "/categories", body: in}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in CategoryRequest) (Category, error) {
	var out Category
	err := c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/categories/%d", id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/categories/%d", id)}, nil)
}
