package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token. The call never carries an existing
// token, and a 401 here means bad credentials rather than an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &out)
	return out, err
}

// Me validates the held token and returns the fresh identity.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var out Identity
	err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me"}, &out)
	return out, err
}

// MeWithToken validates an explicit token, bypassing the credential resolver.
// It is used while a stored token is being revalidated.
func (c *Client) MeWithToken(ctx context.Context, token string) (Identity, error) {
	var out Identity
	req, err := c.newRequest(ctx, call{method: http.MethodGet, path: "/auth/me", anonymous: true}, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	err = c.send(ctx, req, call{method: http.MethodGet, path: "/auth/me", anonymous: true}, &out)
	return out, err
}

// UpdateProfile changes the display name of the current user.
func (c *Client) UpdateProfile(ctx context.Context, fullName string) (Identity, error) {
	var out Identity
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/auth/profile",
		body:   map[string]string{"fullName": fullName},
	}, &out)
	return out, err
}

// ChangePassword rotates the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/change-password",
		body:   map[string]string{"oldPassword": oldPassword, "newPassword": newPassword},
	}, nil)
}
