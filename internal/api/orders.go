package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

func (c *Client) ListOrders(ctx context.Context, page, size int) (Page[Order], error) {
	var out Page[Order]
	err := c.do(ctx, call{method: http.MethodGet, path: "/orders", query: pageQuery(page, size)}, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id int64) (Order, error) {
	var out Order
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/orders/%d", id)}, &out)
	return out, err
}

// CreateOrder submits a new order and returns its id. The backend answers
// either with the bare id or with the created order.
func (c *Client) CreateOrder(ctx context.Context, in OrderCreateRequest) (int64, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodPost, path: "/orders", body: in}, &raw); err != nil {
		return 0, err
	}
	return decodeID(raw)
}

// CancelOrder asks the backend to cancel and restock an order.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/orders/%d/cancel", id)}, nil)
}

func decodeID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("api: decode created id: %w", err)
	}
	return obj.ID, nil
}
