package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/orders"
)

var (
	ErrInvalidCart          = errors.New("invalid cart")
	ErrMissingBuyer         = errors.New("missing buyer details")
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
	// ErrOrderUnavailable means the pending order could not be recorded.
	// The buyer may retry; the provider was not contacted.
	ErrOrderUnavailable = errors.New("unable to start order")
)

var hundred = decimal.NewFromInt(100)

// CartLine is one entry of the client-side cart.
type CartLine struct {
	ProductID       string          `json:"id"`
	Name            string          `json:"name"`
	Size            string          `json:"size"`
	Quantity        int             `json:"qty"`
	Price           decimal.Decimal `json:"price"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// UnitPrice applies the discount to the original price when both are set,
// otherwise it is the listed price.
func (l CartLine) UnitPrice() decimal.Decimal {
	if l.OriginalPrice.IsPositive() && l.DiscountPercent.IsPositive() {
		return l.OriginalPrice.Mul(hundred.Sub(l.DiscountPercent)).Div(hundred)
	}
	return l.Price
}

type CheckoutRequest struct {
	Cart        []CartLine
	FullName    string
	Email       string
	Phone       string
	AddressLine string
	Landmark    string
	City        string
	State       string
	Zip         string
	// TxnID is generated when empty.
	TxnID string
}

// ShippingAddress formats "line[, landmark], city, state zip".
func (r CheckoutRequest) ShippingAddress() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.AddressLine))
	if lm := strings.TrimSpace(r.Landmark); lm != "" {
		b.WriteString(", ")
		b.WriteString(lm)
	}
	fmt.Fprintf(&b, ", %s, %s %s", strings.TrimSpace(r.City), strings.TrimSpace(r.State), strings.TrimSpace(r.Zip))
	return b.String()
}

func (r CheckoutRequest) items() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(r.Cart))
	for _, l := range r.Cart {
		items = append(items, models.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Size:        l.Size,
			Quantity:    l.Quantity,
			Price:       l.UnitPrice(),
		})
	}
	return items
}

func (r CheckoutRequest) validate() error {
	if len(r.Cart) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	for _, l := range r.Cart {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: %s has quantity %d", ErrInvalidCart, l.Name, l.Quantity)
		}
		if l.UnitPrice().IsNegative() {
			return fmt.Errorf("%w: %s has a negative price", ErrInvalidCart, l.Name)
		}
	}
	if strings.TrimSpace(r.FullName) == "" || strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.AddressLine) == "" {
		return ErrMissingBuyer
	}
	return nil
}

// Amount is the cart total with exactly two decimals, as PayU expects.
func Amount(items []models.OrderItem) string {
	return models.SumItems(items).StringFixed(2)
}

// GatewayConfig holds the merchant credentials and the callback URLs.
type GatewayConfig struct {
	Name        string
	Key         string
	Salt        string
	ActionURL   string
	SuccessURL  string
	FailureURL  string
	ProductInfo string
}

// OrderCreator records the pending order. *orders.Service implements it.
type OrderCreator interface {
	Create(ctx context.Context, req orders.Request) (*models.Order, error)
}

type FormField struct {
	Name  string
	Value string
}

// Handoff is everything needed to post the buyer to the provider.
type Handoff struct {
	ActionURL string
	OrderID   string
	TxnID     string
	Amount    string
	Fields    []FormField
}

// Value returns a form field by name.
func (h *Handoff) Value(name string) string {
	for _, f := range h.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

type Initiator struct {
	Orders  OrderCreator
	Signer  Signer
	Gateway GatewayConfig
	TxnIDs  *orders.IDGenerator
}

func NewInitiator(creator OrderCreator, gw GatewayConfig) *Initiator {
	return &Initiator{
		Orders:  creator,
		Signer:  SHA512Signer{},
		Gateway: gw,
		TxnIDs:  orders.NewIDGenerator("TXN"),
	}
}

// Begin records a pending order and prepares the signed provider form.
// Nothing is persisted unless the snapshot encodes, and nothing is sent to
// the provider unless the order is stored.
func (in *Initiator) Begin(ctx context.Context, req CheckoutRequest) (*Handoff, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if in.Gateway.Key == "" || in.Gateway.Salt == "" {
		return nil, ErrGatewayNotConfigured
	}

	txnID := req.TxnID
	if txnID == "" {
		txnID = in.TxnIDs.Next()
	}
	items := req.items()
	amount := Amount(items)
	address := req.ShippingAddress()

	orderReq := orders.Request{
		CustomerName:    strings.TrimSpace(req.FullName),
		CustomerEmail:   strings.TrimSpace(req.Email),
		CustomerPhone:   strings.TrimSpace(req.Phone),
		ShippingAddress: address,
		Items:           items,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentGateway:  in.Gateway.Name,
		PayUTxnID:       txnID,
	}

	udf1, err := EncodeSnapshot(orderReq)
	if err != nil {
		return nil, err
	}

	order, err := in.Orders.Create(ctx, orderReq)
	if err != nil {
		if errors.Is(err, orders.ErrMissingDetails) || errors.Is(err, orders.ErrInvalidItem) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}

	udf := []string{udf1, address, order.ID}

	hash := in.Signer.Sign(RequestFields{
		Key:         in.Gateway.Key,
		TxnID:       txnID,
		Amount:      amount,
		ProductInfo: in.Gateway.ProductInfo,
		FirstName:   orderReq.CustomerName,
		Email:       orderReq.CustomerEmail,
		UDF:         udf,
		Salt:        in.Gateway.Salt,
	}.Ordered())

	return &Handoff{
		ActionURL: in.Gateway.ActionURL,
		OrderID:   order.ID,
		TxnID:     txnID,
		Amount:    amount,
		Fields: []FormField{
			{"key", in.Gateway.Key},
			{"txnid", txnID},
			{"amount", amount},
			{"productinfo", in.Gateway.ProductInfo},
			{"firstname", orderReq.CustomerName},
			{"email", orderReq.CustomerEmail},
			{"phone", orderReq.CustomerPhone},
			{"address1", strings.TrimSpace(req.AddressLine)},
			{"address2", strings.TrimSpace(req.Landmark)},
			{"city", strings.TrimSpace(req.City)},
			{"state", strings.TrimSpace(req.State)},
			{"zipcode", strings.TrimSpace(req.Zip)},
			{"surl", in.Gateway.SuccessURL},
			{"furl", in.Gateway.FailureURL},
			{"udf1", udf[0]},
			{"udf2", udf[1]},
			{"udf3", udf[2]},
			{"hash", hash},
		},
	}, nil
}
