// Package orders owns order identity, creation rules and the status
// lifecycle. Persistence lives in internal/store.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/store"
)

var (
	ErrMissingDetails    = errors.New("missing order details")
	ErrInvalidItem       = errors.New("invalid order item")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status change not allowed")
)

// Request is the order creation payload. It is also the snapshot that
// checkout embeds in the provider's udf1 field.
type Request struct {
	CustomerName    string               `json:"customer_name"`
	CustomerEmail   string               `json:"customer_email"`
	CustomerPhone   string               `json:"customer_phone"`
	ShippingAddress string               `json:"shipping_address"`
	Items           []models.OrderItem   `json:"items"`
	Status          models.OrderStatus   `json:"status,omitempty"`
	PaymentStatus   models.PaymentStatus `json:"payment_status,omitempty"`
	PaymentGateway  string               `json:"payment_gateway,omitempty"`
	PayUTxnID       string               `json:"payu_txn_id,omitempty"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.CustomerName) == "" || strings.TrimSpace(r.ShippingAddress) == "" || len(r.Items) == 0 {
		return ErrMissingDetails
	}
	for i, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive, got %d", ErrInvalidItem, i, it.Quantity)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: item %d: price cannot be negative", ErrInvalidItem, i)
		}
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if !r.PaymentStatus.Valid() {
		return fmt.Errorf("%w: payment %q", ErrInvalidStatus, r.PaymentStatus)
	}
	return nil
}

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	FindOrderByTxn(ctx context.Context, gateway, txnID string) (*models.Order, error)
	ApplyPayment(ctx context.Context, id string, u store.PaymentUpdate) error
	UpdateFulfillment(ctx context.Context, id string, status models.OrderStatus, shippingID string) error
}

type Service struct {
	store Store
	ids   *IDGenerator
	now   func() time.Time
}

func NewService(s Store) *Service {
	return &Service{
		store: s,
		ids:   NewIDGenerator("ORD-"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create validates req and persists a new order. Status and payment status
// default to pending. The total is fixed here from the items.
func (s *Service) Create(ctx context.Context, req Request) (*models.Order, error) {
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = models.PaymentPending
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, len(req.Items))
	copy(items, req.Items)

	order := &models.Order{
		ID:              s.ids.Next(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Total:           models.SumItems(items),
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		PaymentGateway:  req.PaymentGateway,
		PayUTxnID:       req.PayUTxnID,
		CreatedAt:       s.now(),
		Items:           items,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) FindByTxn(ctx context.Context, gateway, txnID string) (*models.Order, error) {
	return s.store.FindOrderByTxn(ctx, gateway, txnID)
}

func (s *Service) ApplyPayment(ctx context.Context, id string, u store.PaymentUpdate) error {
	return s.store.ApplyPayment(ctx, id, u)
}

// UpdateFulfillment applies a staff status change. A shipping id on an
// order that is not delivered promotes it to shipped. The resulting status
// is returned.
func (s *Service) UpdateFulfillment(ctx context.Context, id string, status models.OrderStatus, shippingID string) (models.OrderStatus, error) {
	if status == "" {
		return "", fmt.Errorf("%w: status required", ErrInvalidStatus)
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	shippingID = strings.TrimSpace(shippingID)
	if shippingID != "" && status != models.StatusDelivered {
		status = models.StatusShipped
	}

	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	if !CanTransition(current.Status, status) {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	if err := s.store.UpdateFulfillment(ctx, id, status, shippingID); err != nil {
		return "", err
	}
	return status, nil
}
