// Package cart holds the order being composed on the order creation screen.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/salesdesk/salesdesk/internal/api"
)

// User facing messages recorded on the cart.
const (
	MsgMissingSelection = "Vui lòng chọn khách hàng và sản phẩm"
	MsgUnknownFailure   = "Đã xảy ra lỗi không xác định"
)

// StalePendingAfter bounds how long a submission may stay pending before a
// new one is accepted. It only matters when the process handling the first
// submission died mid-flight.
const StalePendingAfter = 2 * time.Minute

var (
	// ErrSubmitInProgress rejects a second submission while one is outstanding.
	ErrSubmitInProgress = errors.New("cart: submission already in progress")
	// ErrIncomplete is returned when no customer is selected or no line exists.
	ErrIncomplete = errors.New("cart: customer and at least one product required")
)

// Status of the last submission.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// AddResult tells the caller what AddProduct did. The cart itself never
// raises on the silent paths; callers may use the result to show a hint.
type AddResult int

const (
	Added AddResult = iota
	Incremented
	AtCeiling
	OutOfStock
)

// Product is the catalogue data needed to put a product in the cart.
type Product struct {
	ID            int64
	Name          string
	Price         float64
	StockQuantity int
}

// ProductFromAPI adapts a backend product.
func ProductFromAPI(p api.Product) Product {
	return Product{ID: p.ID, Name: p.Name, Price: p.Price, StockQuantity: p.StockQuantity}
}

// Customer is the buyer selected for the order.
type Customer struct {
	ID          int64  `json:"id"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
}

// CustomerFromAPI adapts a backend customer.
func CustomerFromAPI(c api.Customer) Customer {
	return Customer{ID: c.ID, FullName: c.FullName, PhoneNumber: c.PhoneNumber}
}

// Line is one product in the cart. 1 <= Quantity <= StockCeiling holds after
// every mutation.
type Line struct {
	ProductID    int64   `json:"productId"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
	StockCeiling int     `json:"stockCeiling"`
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// OrderCreator submits an order to the backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in api.OrderCreateRequest) (int64, error)
}

// Cart is safe for concurrent use. Every mutation entry point takes the same
// mutex, so two simultaneous adds of one product cannot both pass the stock
// ceiling check.
type Cart struct {
	mu           sync.Mutex
	lines        map[int64]*Line
	order        []int64
	customer     *Customer
	status       Status
	message      string
	lastOrderID  int64
	pendingSince time.Time
	now          func() time.Time
}

// New returns an empty idle cart.
func New() *Cart {
	return &Cart{lines: make(map[int64]*Line), status: StatusIdle, now: time.Now}
}

// SetCustomer replaces the selected customer. nil deselects.
func (c *Cart) SetCustomer(cust *Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cust == nil {
		c.customer = nil
		return
	}
	copied := *cust
	c.customer = &copied
}

// AddProduct adds one unit of p. Products without stock are ignored, even
// when already in the cart, and so are increments past the stock ceiling.
func (c *Cart) AddProduct(p Product) AddResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.StockQuantity <= 0 {
		return OutOfStock
	}
	if line, ok := c.lines[p.ID]; ok {
		if line.Quantity+1 > line.StockCeiling {
			return AtCeiling
		}
		line.Quantity++
		return Incremented
	}
	c.lines[p.ID] = &Line{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		Quantity:     1,
		StockCeiling: p.StockQuantity,
	}
	c.order = append(c.order, p.ID)
	return Added
}

// UpdateQuantity sets the quantity of an existing line. Values above the
// ceiling are clamped; values <= 0 are ignored. Unknown ids are a no-op.
func (c *Cart) UpdateQuantity(productID int64, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[productID]
	if !ok || qty <= 0 {
		return
	}
	if qty > line.StockCeiling {
		qty = line.StockCeiling
	}
	line.Quantity = qty
}

// RemoveProduct deletes a line.
func (c *Cart) RemoveProduct(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(productID)
}

// Clear empties lines, customer and message. The status is kept.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// ResetStatus returns a finished submission to idle once it has been shown.
func (c *Cart) ResetStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusPending {
		return
	}
	c.status = StatusIdle
	c.message = ""
}

// Submit validates and sends the cart. On success the cart is cleared in the
// same critical section that records the success.
func (c *Cart) Submit(ctx context.Context, creator OrderCreator) (int64, error) {
	req, err := c.BeginSubmit()
	if err != nil {
		return 0, err
	}
	id, err := creator.CreateOrder(ctx, req)
	c.FinishSubmit(id, err)
	return id, err
}

// BeginSubmit performs the local checks and marks the cart pending. It
// returns the request to send. Callers that persist the cart between steps
// use it together with FinishSubmit.
func (c *Cart) BeginSubmit() (api.OrderCreateRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusPending && c.clock().Sub(c.pendingSince) < StalePendingAfter {
		return api.OrderCreateRequest{}, ErrSubmitInProgress
	}
	if c.customer == nil || len(c.order) == 0 {
		c.status = StatusError
		c.message = MsgMissingSelection
		return api.OrderCreateRequest{}, ErrIncomplete
	}
	req := api.OrderCreateRequest{CustomerID: c.customer.ID, Items: make([]api.OrderItemRequest, 0, len(c.order))}
	for _, id := range c.order {
		line := c.lines[id]
		req.Items = append(req.Items, api.OrderItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	c.status = StatusPending
	c.message = ""
	c.pendingSince = c.clock()
	return req, nil
}

// FinishSubmit records the outcome of a submission started by BeginSubmit.
func (c *Cart) FinishSubmit(orderID int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingSince = time.Time{}
	if err != nil {
		c.status = StatusError
		c.message = api.Message(err, MsgUnknownFailure)
		return
	}
	c.clearLocked()
	c.status = StatusSuccess
	c.lastOrderID = orderID
}

// TotalQuantity sums line quantities.
func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// TotalAmount sums line subtotals.
func (c *Cart) TotalAmount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, id := range c.order {
		total += c.lines[id].Subtotal()
	}
	return total
}

// Snapshot is an immutable view of the cart for rendering.
type Snapshot struct {
	Lines         []Line
	Customer      *Customer
	Status        Status
	Message       string
	LastOrderID   int64
	TotalQuantity int
	TotalAmount   float64
}

// IsEmpty reports whether no line is present.
func (s Snapshot) IsEmpty() bool { return len(s.Lines) == 0 }

// Snapshot copies the current state. Lines keep insertion order.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Lines:       make([]Line, 0, len(c.order)),
		Status:      c.status,
		Message:     c.message,
		LastOrderID: c.lastOrderID,
	}
	if c.customer != nil {
		cust := *c.customer
		snap.Customer = &cust
	}
	for _, id := range c.order {
		line := *c.lines[id]
		snap.Lines = append(snap.Lines, line)
		snap.TotalQuantity += line.Quantity
		snap.TotalAmount += line.Subtotal()
	}
	return snap
}

type cartState struct {
	Lines        []Line    `json:"lines"`
	Customer     *Customer `json:"customer,omitempty"`
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
	LastOrderID  int64     `json:"lastOrderId,omitempty"`
	PendingSince time.Time `json:"pendingSince,omitempty"`
}

// MarshalJSON encodes the cart for persistence.
func (c *Cart) MarshalJSON() ([]byte, error) {
	snap := c.Snapshot()
	c.mu.Lock()
	pendingSince := c.pendingSince
	c.mu.Unlock()
	return json.Marshal(cartState{
		Lines:        snap.Lines,
		Customer:     snap.Customer,
		Status:       snap.Status,
		Message:      snap.Message,
		LastOrderID:  snap.LastOrderID,
		PendingSince: pendingSince,
	})
}

// UnmarshalJSON restores a persisted cart. Lines that violate the quantity
// bounds are repaired rather than rejected.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var st cartState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[int64]*Line, len(st.Lines))
	c.order = c.order[:0]
	for _, line := range st.Lines {
		if line.StockCeiling <= 0 || line.Quantity <= 0 {
			continue
		}
		if _, dup := c.lines[line.ProductID]; dup {
			continue
		}
		if line.Quantity > line.StockCeiling {
			line.Quantity = line.StockCeiling
		}
		l := line
		c.lines[l.ProductID] = &l
		c.order = append(c.order, l.ProductID)
	}
	c.customer = st.Customer
	c.status = st.Status
	if c.status == "" {
		c.status = StatusIdle
	}
	c.message = st.Message
	c.lastOrderID = st.LastOrderID
	c.pendingSince = st.PendingSince
	return nil
}

func (c *Cart) removeLocked(productID int64) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) clearLocked() {
	c.lines = make(map[int64]*Line)
	c.order = nil
	c.customer = nil
	c.message = ""
}

func (c *Cart) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
