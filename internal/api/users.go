package api

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) ListUsers(ctx context.Context, page, size int) (Page[User], error) {
	var out Page[User]
	err := c.do(ctx, call{method: http.MethodGet, path: "/users", query: pageQuery(page, size)}, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, in UserCreateRequest) (User, error) {
	var out User
	err := c.do(ctx, call{method: http.MethodPost, path: "/users", body: in}, &out)
	return out, err
}

// ToggleUserStatus flips the active flag of a staff account.
func (c *Client) ToggleUserStatus(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/users/%d/toggle-status", id)}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/users/%d", id)}, nil)
}
