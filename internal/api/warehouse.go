package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

func (c *Client) CreateReceipt(ctx context.Context, in ReceiptRequest) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/warehouse/receipts", body: in}, nil)
}

func (c *Client) CreateAdjustment(ctx context.Context, in AdjustmentRequest) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/warehouse/adjustments", body: in}, nil)
}

// ScanInvoice uploads an invoice image for AI extraction.
func (c *Client) ScanInvoice(ctx context.Context, filename string, r io.Reader) (InvoiceScan, error) {
	var out InvoiceScan
	err := c.upload(ctx, "/ai/scan-invoice", filename, r, &out)
	return out, err
}

// Upload stores a file on the backend and returns its (relative) url.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.upload(ctx, "/files/upload", filename, r, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// DashboardStats returns today's figures. Zero times omit the range.
func (c *Client) DashboardStats(ctx context.Context, from, to time.Time) (DashboardStats, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("startDate", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("endDate", to.Format("2006-01-02"))
	}
	var out DashboardStats
	err := c.do(ctx, call{method: http.MethodGet, path: "/dashboard/stats", query: q}, &out)
	return out, err
}

func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("api: buffer upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}
	in := call{method: http.MethodPost, path: path}
	req, err := c.newRequest(ctx, in, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(ctx, req, in, out)
}
