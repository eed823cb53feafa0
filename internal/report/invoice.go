package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/view"
	"github.com/salesdesk/salesdesk/web"
)

// Renderer is the PDF backend used by Invoices.
type Renderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Invoices prints sales orders.
type Invoices struct {
	tpl      *template.Template
	renderer Renderer
	shopName string
	now      func() time.Time
}

type invoiceLine struct {
	api.OrderDetail
	No       int
	Subtotal float64
}

// NewInvoices parses the invoice template. shopName heads every invoice.
func NewInvoices(renderer Renderer, shopName string) (*Invoices, error) {
	tpl, err := template.New("invoice.html").Funcs(view.Funcs()).ParseFS(web.Templates, "templates/reports/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse invoice: %w", err)
	}
	return &Invoices{tpl: tpl, renderer: renderer, shopName: shopName, now: time.Now}, nil
}

// HTML renders the printable invoice page for order.
func (i *Invoices) HTML(order api.Order) ([]byte, error) {
	lines := make([]invoiceLine, 0, len(order.OrderDetails))
	for n, d := range order.OrderDetails {
		lines = append(lines, invoiceLine{OrderDetail: d, No: n + 1, Subtotal: d.PriceAtPurchase * float64(d.Quantity)})
	}
	var buf bytes.Buffer
	err := i.tpl.ExecuteTemplate(&buf, "invoice.html", map[string]any{
		"Shop":      i.shopName,
		"Order":     order,
		"Lines":     lines,
		"Cancelled": order.Status == api.OrderCancelled,
		"PrintedAt": i.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("report: render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders order through Gotenberg.
func (i *Invoices) PDF(ctx context.Context, order api.Order) ([]byte, error) {
	html, err := i.HTML(order)
	if err != nil {
		return nil, err
	}
	return i.renderer.RenderHTML(ctx, html)
}
