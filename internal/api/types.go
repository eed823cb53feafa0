package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultPageSize matches the backend default page size.
const DefaultPageSize = 10

// Role names issued by the backend.
const (
	RoleAdmin          = "ROLE_ADMIN"
	RoleSalesStaff     = "ROLE_SALES_STAFF"
	RoleWarehouseStaff = "ROLE_WAREHOUSE_STAFF"
)

// Page is the backend pagination envelope. Number is 0-based.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// Identity is the authenticated user as reported by the backend.
type Identity struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// Identity extracts the user part of the login response.
func (r LoginResponse) Identity() Identity {
	return Identity{Email: r.Email, FullName: r.FullName, Role: r.Role}
}

type Product struct {
	ID            int64   `json:"id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price"`
	CategoryID    int64   `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	StockQuantity int     `json:"stockQuantity"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	IsActive      bool    `json:"isActive"`
}

type ProductRequest struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	CategoryID   int64   `json:"categoryId"`
	InitialStock int     `json:"initialStock"`
	ImageURL     string  `json:"imageUrl,omitempty"`
}

// ProductFilter narrows GET /products.
type ProductFilter struct {
	Page       int
	Size       int
	Search     string
	CategoryID int64
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Customer struct {
	ID          int64  `json:"id"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
}

type CustomerRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
}

type Supplier struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Address       string `json:"address,omitempty"`
	IsActive      bool   `json:"isActive"`
}

type SupplierRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Address       string `json:"address,omitempty"`
	IsActive      bool   `json:"isActive"`
}

// Order statuses the console renders specially.
const (
	OrderCompleted = "COMPLETED"
	OrderCancelled = "CANCELLED"
)

type Order struct {
	ID            int64         `json:"id"`
	OrderDate     Timestamp     `json:"orderDate"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	UserName      string        `json:"userName"`
	TotalAmount   float64       `json:"totalAmount"`
	Status        string        `json:"status"`
	OrderDetails  []OrderDetail `json:"orderDetails"`
}

type OrderDetail struct {
	ProductID       int64   `json:"productId"`
	ProductSKU      string  `json:"productSku"`
	ProductName     string  `json:"productName"`
	PriceAtPurchase float64 `json:"priceAtPurchase"`
	Quantity        int     `json:"quantity"`
}

// OrderItemRequest carries no price: pricing is the backend's job.
type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type OrderCreateRequest struct {
	CustomerID int64              `json:"customerId"`
	Items      []OrderItemRequest `json:"items"`
}

type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	RoleName string `json:"roleName"`
	RoleID   int64  `json:"roleId"`
	IsActive bool   `json:"isActive"`
}

type UserCreateRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   int64  `json:"roleId"`
}

type ReceiptItem struct {
	ProductID  int64   `json:"productId"`
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
}

type ReceiptRequest struct {
	SupplierID int64         `json:"supplierId"`
	Note       string        `json:"note,omitempty"`
	Items      []ReceiptItem `json:"items"`
}

type AdjustmentRequest struct {
	ProductID   int64  `json:"productId"`
	NewQuantity int    `json:"newQuantity"`
	Reason      string `json:"reason"`
}

// InvoiceScan is the AI extraction of an uploaded invoice image.
type InvoiceScan struct {
	SupplierName string            `json:"supplierName"`
	InvoiceDate  string            `json:"invoiceDate"`
	TotalAmount  float64           `json:"totalAmount"`
	Items        []InvoiceScanItem `json:"items"`
}

type InvoiceScanItem struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type DashboardStats struct {
	TotalRevenueToday  float64          `json:"totalRevenueToday"`
	TotalOrdersToday   int64            `json:"totalOrdersToday"`
	NewCustomersToday  int64            `json:"newCustomersToday"`
	TopSellingProducts []TopSellingItem `json:"topSellingProducts"`
}

type TopSellingItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	TotalSold   int64  `json:"totalSold"`
}

// Timestamp accepts the backend's local date-time strings, which carry no zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("api: unsupported timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}
