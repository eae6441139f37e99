package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusPacked    OrderStatus = "packed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

// Valid reports whether s is one of the known fulfillment statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusPacked, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentGateway  string          `json:"payment_gateway"`
	PayUTxnID       string          `json:"payu_txn_id"`
	ShippingID      string          `json:"shipping_id"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	OrderID     string          `json:"order_id,omitempty"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // unit price after discount
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems totals a set of line items. The result is what an order's Total
// is set to at creation; it is never recomputed afterwards.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Subcategory  string          `json:"subcategory"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"` // percent
	Sizes        []string        `json:"sizes"`
	Stock        int             `json:"stock"`
	Availability string          `json:"availability"` // "in_stock", "low_stock", "out_of_stock"
	Image        string          `json:"image"`
	Images       []string        `json:"images"`
	Color        string          `json:"color"`
	Description  string          `json:"description"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Role string

const (
	RoleStore  Role = "store"
	RoleMaster Role = "master"
)

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID        int       `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a customer review of a product. Email is kept for moderation
// and never served back.
type Review struct {
	ID          int       `json:"id"`
	ProductID   string    `json:"productId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"-"`
	Rating      int       `json:"rating"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"time"`
}

// ResolveAvailability derives availability from stock, keeping the requested
// value only when stock is healthy.
func ResolveAvailability(stock int, requested string) string {
	switch {
	case stock <= 0:
		return "out_of_stock"
	case stock < 10:
		return "low_stock"
	}
	return requested
}
