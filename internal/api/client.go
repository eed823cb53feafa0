// Package api is the typed client for the remote sales REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// HeaderRequestID carries the console request id to the backend.
const HeaderRequestID = "X-Request-ID"

// Credentials supplies the bearer token for outgoing calls and reacts to a
// rejected token.
type Credentials interface {
	Token() string
	ForceLogout(ctx context.Context)
}

// Observer receives one observation per completed backend call.
type Observer interface {
	ObserveAPICall(method, endpoint string, status int, elapsed time.Duration)
}

// Client talks to the backend. A single Client is shared by every request;
// per-request credentials are resolved from the context.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	credentials func(context.Context) Credentials
	observer    Observer
	logger      *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCredentials installs the resolver used to find the caller's credentials.
func WithCredentials(fn func(context.Context) Credentials) Option {
	return func(c *Client) { c.credentials = fn }
}

// WithObserver records call metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for transport failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL turns a backend-relative asset path (such as an uploaded image
// url) into an absolute one. Absolute inputs are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	origin := url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host}
	return origin.String() + "/" + strings.TrimLeft(ref, "/")
}

type call struct {
	method    string
	path      string
	query     url.Values
	body      any
	anonymous bool
}

func (c *Client) do(ctx context.Context, in call, out any) error {
	var body io.Reader
	contentType := ""
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", in.method, in.path, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, in, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.send(ctx, req, in, out)
}

func (c *Client) newRequest(ctx context.Context, in call, body io.Reader) (*http.Request, error) {
	target := c.baseURL.JoinPath(in.path)
	if len(in.query) > 0 {
		target.RawQuery = in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: build %s %s: %w", in.method, in.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(HeaderRequestID, reqID)
	}
	if !in.anonymous {
		if creds := c.resolve(ctx); creds != nil {
			if token := creds.Token(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, req *http.Request, in call, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(in, 0, start)
		c.logger.Warn("backend call failed", slog.String("method", in.method), slog.String("path", in.path), slog.Any("error", err))
		return fmt.Errorf("api: %s %s: %w", in.method, in.path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(in, resp.StatusCode, start)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp)
		apiErr.Method = in.method
		apiErr.Path = in.path
		if resp.StatusCode == http.StatusUnauthorized && !in.anonymous {
			if creds := c.resolve(ctx); creds != nil {
				creds.ForceLogout(ctx)
			}
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", in.method, in.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", in.method, in.path, err)
	}
	return nil
}

func (c *Client) resolve(ctx context.Context) Credentials {
	if c.credentials == nil {
		return nil
	}
	return c.credentials(ctx)
}

func (c *Client) observe(in call, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveAPICall(in.method, endpointLabel(in.path), status, time.Since(start))
}

// endpointLabel keeps metric cardinality bounded by dropping numeric ids.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if isDigits(p) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(payload.Message)
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(payload.Error)
	}
	return apiErr
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(size))
	return q
}
