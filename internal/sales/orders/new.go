package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/cart"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
)

var tracer = otel.Tracer("github.com/salesdesk/salesdesk/internal/sales/orders")

const (
	newPath = "/orders/new"

	idempotencyModule = "orders"
	pickerSize        = 10
)

// Submission outcomes reported to the SubmitObserver.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeIncomplete = "incomplete"
	OutcomeDuplicate  = "duplicate"
)

const (
	msgCartUnavailable = "Không thể tải giỏ hàng, vui lòng thử lại"
	msgOutOfStock      = "Sản phẩm đã hết hàng"
	msgAtCeiling       = "Đã đạt tối đa tồn kho"
	msgDuplicateSubmit = "Đơn hàng đang được xử lý, vui lòng không gửi lại"
)

func cartID(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return ""
}

// ShowForm renders the order composer: product search, customer lookup and
// the cart kept for this session.
func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("q"))
	phone := strings.TrimSpace(q.Get("phone"))

	if raw := q.Get("customer"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			if ok := h.selectCustomer(w, r, id); !ok {
				return
			}
		}
	}

	c, err := h.carts.Load(ctx, cartID(r))
	if err != nil {
		h.logger.Error("load cart", slog.Any("error", err))
		c = cart.New()
	}
	snap := c.Snapshot()
	if snap.Status == cart.StatusSuccess || snap.Status == cart.StatusError {
		// The outcome has been flashed already; the screen starts idle.
		if _, err := h.carts.Update(ctx, cartID(r), func(c *cart.Cart) error {
			c.ResetStatus()
			return nil
		}); err != nil {
			h.logger.Warn("reset cart status", slog.Any("error", err))
		}
	}

	var (
		products  []api.Product
		customers []api.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := h.backend.ListProducts(gctx, api.ProductFilter{Size: pickerSize, Search: search})
		products = page.Content
		return err
	})
	if phone != "" {
		g.Go(func() error {
			var err error
			customers, err = h.backend.SearchCustomers(gctx, phone)
			return err
		})
	}

	data := map[string]any{
		"Cart":           snap,
		"Search":         search,
		"Phone":          phone,
		"IdempotencyKey": uuid.NewString(),
	}
	if err := g.Wait(); err != nil {
		msg, redirected := h.pages.FetchFailed(w, r, err, "Không thể tải dữ liệu bán hàng")
		if redirected {
			return
		}
		data["LoadError"] = msg
	}
	data["Products"] = products
	data["Customers"] = customers
	data["SearchedPhone"] = phone != ""
	h.pages.Render(w, r, "pages/orders/new.html", "Tạo đơn hàng", data, http.StatusOK)
}

// selectCustomer loads the customer and stores it on the cart. It answers
// the request itself and reports false when the backend refused.
func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request, id int64) bool {
	customer, err := h.backend.GetCustomer(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, newPath, "Không tìm thấy khách hàng")
		return false
	}
	picked := cart.CustomerFromAPI(customer)
	if err := h.mutate(r.Context(), r, func(c *cart.Cart) { c.SetCustomer(&picked) }); err != nil {
		h.pages.Redirect(w, r, newPath, shared.FlashError, msgCartUnavailable)
		return false
	}
	return true
}

func (h *Handler) mutate(ctx context.Context, r *http.Request, fn func(*cart.Cart)) error {
	_, err := h.carts.Update(ctx, cartID(r), func(c *cart.Cart) error {
		fn(c)
		return nil
	})
	if err != nil {
		h.logger.Error("update cart", slog.Any("error", err))
	}
	return err
}

// done redirects back to the composer, keeping the product search.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, kind, msg string, err error) {
	if err != nil {
		kind, msg = shared.FlashError, msgCartUnavailable
	}
	target := newPath
	if q := strings.TrimSpace(r.PostFormValue("q")); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	h.pages.Redirect(w, r, target, kind, msg)
}

func (h *Handler) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	id := shared.FormInt64(r, "customerId")
	if id <= 0 {
		h.done(w, r, shared.FlashError, "Vui lòng chọn khách hàng", nil)
		return
	}
	if !h.selectCustomer(w, r, id) {
		return
	}
	h.done(w, r, "", "", nil)
}

func (h *Handler) ClearCustomer(w http.ResponseWriter, r *http.Request) {
	err := h.mutate(r.Context(), r, func(c *cart.Cart) { c.SetCustomer(nil) })
	h.done(w, r, "", "", err)
}

// AddItem adds one unit of a product. The product is re-read so a sold-out
// product is not incremented.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := shared.FormInt64(r, "productId")
	if id <= 0 {
		h.done(w, r, shared.FlashError, "Vui lòng chọn sản phẩm", nil)
		return
	}
	product, err := h.backend.GetProduct(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, newPath, "Không tìm thấy sản phẩm")
		return
	}
	var result cart.AddResult
	err = h.mutate(r.Context(), r, func(c *cart.Cart) { result = c.AddProduct(cart.ProductFromAPI(product)) })
	switch {
	case err != nil:
		h.done(w, r, "", "", err)
	case result == cart.OutOfStock:
		h.done(w, r, shared.FlashWarning, msgOutOfStock, nil)
	case result == cart.AtCeiling:
		h.done(w, r, shared.FlashWarning, msgAtCeiling, nil)
	default:
		h.done(w, r, "", "", nil)
	}
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "productID")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	qty := shared.FormInt(r, "quantity")
	err = h.mutate(r.Context(), r, func(c *cart.Cart) { c.UpdateQuantity(id, qty) })
	h.done(w, r, "", "", err)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLParamID(r, "productID")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	err = h.mutate(r.Context(), r, func(c *cart.Cart) { c.RemoveProduct(id) })
	h.done(w, r, "", "", err)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	err := h.mutate(r.Context(), r, func(c *cart.Cart) { c.Clear() })
	h.done(w, r, "", "", err)
}

// Submit sends the cart as a new order. The idempotency key is claimed first,
// then the cart is marked pending in Redis so a second tab cannot submit the
// same cart while the backend call is in flight.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "orders.submit", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	key := strings.TrimSpace(r.PostFormValue("idempotencyKey"))
	if h.idem != nil {
		if key == "" {
			key = uuid.NewString()
		}
		if err := h.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.observe(OutcomeDuplicate)
				h.pages.Redirect(w, r, newPath, shared.FlashWarning, msgDuplicateSubmit)
				return
			}
			h.logger.Error("claim idempotency key", slog.Any("error", err))
			h.pages.Redirect(w, r, newPath, shared.FlashError, cart.MsgUnknownFailure)
			return
		}
	}

	var (
		req      api.OrderCreateRequest
		beginErr error
	)
	_, err := h.carts.Update(ctx, cartID(r), func(c *cart.Cart) error {
		req, beginErr = c.BeginSubmit()
		if errors.Is(beginErr, cart.ErrSubmitInProgress) {
			return beginErr
		}
		// An incomplete cart still records its error status.
		return nil
	})
	switch {
	case errors.Is(err, cart.ErrSubmitInProgress):
		h.observe(OutcomeDuplicate)
		h.pages.Redirect(w, r, newPath, shared.FlashWarning, msgDuplicateSubmit)
		return
	case err != nil:
		h.release(ctx, key)
		h.logger.Error("begin submit", slog.Any("error", err))
		h.pages.Redirect(w, r, newPath, shared.FlashError, msgCartUnavailable)
		return
	case errors.Is(beginErr, cart.ErrIncomplete):
		h.release(ctx, key)
		h.observe(OutcomeIncomplete)
		h.pages.Redirect(w, r, newPath, shared.FlashError, cart.MsgMissingSelection)
		return
	}

	span.SetAttributes(attribute.Int64("order.customer_id", req.CustomerID), attribute.Int("order.lines", len(req.Items)))
	orderID, createErr := h.backend.CreateOrder(ctx, req)
	if _, err := h.carts.Update(ctx, cartID(r), func(c *cart.Cart) error {
		c.FinishSubmit(orderID, createErr)
		return nil
	}); err != nil {
		h.logger.Error("finish submit", slog.Any("error", err), slog.Int64("order_id", orderID))
	}

	if createErr != nil {
		span.RecordError(createErr)
		span.SetStatus(codes.Error, "create order")
		h.release(ctx, key)
		h.observe(OutcomeError)
		if api.IsUnauthorized(createErr) || api.IsForbidden(createErr) {
			h.pages.Fail(w, r, createErr, newPath, "")
			return
		}
		h.logger.Warn("create order failed", slog.Any("error", createErr))
		h.pages.Redirect(w, r, newPath, shared.FlashError, api.Message(createErr, cart.MsgUnknownFailure))
		return
	}

	h.observe(OutcomeSuccess)
	span.SetAttributes(attribute.Int64("order.id", orderID))
	id := strconv.FormatInt(orderID, 10)
	shared.RecordQuietly(ctx, h.audit, h.logger, shared.AuditLog{
		Actor: session.Actor(ctx), Action: "create", Entity: "order", EntityID: id,
		Meta: map[string]any{"customer_id": req.CustomerID, "lines": len(req.Items)},
	})
	h.pages.Redirect(w, r, "/orders/"+id, shared.FlashSuccess, "Tạo đơn hàng #"+id+" thành công")
}

// release frees the idempotency key after a failure so the user may retry.
func (h *Handler) release(ctx context.Context, key string) {
	if h.idem == nil || key == "" {
		return
	}
	if err := h.idem.Delete(ctx, key); err != nil {
		h.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveOrderSubmit(outcome)
	}
}
