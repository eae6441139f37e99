package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/orders"
	"github.com/kouprey/storefront/internal/store"
)

var (
	ErrMissingItems      = errors.New("missing order items")
	ErrUntrustedCallback = errors.New("callback failed verification")
)

// Fields is a flattened provider callback body.
type Fields map[string]string

func (f Fields) Get(key string) string {
	return strings.TrimSpace(f[key])
}

func udfKey(i int) string {
	return "udf" + strconv.Itoa(i)
}

// OrderBook is the order access reconciliation needs. *orders.Service
// implements it.
type OrderBook interface {
	Create(ctx context.Context, req orders.Request) (*models.Order, error)
	FindByTxn(ctx context.Context, gateway, txnID string) (*models.Order, error)
	ApplyPayment(ctx context.Context, id string, u store.PaymentUpdate) error
}

// Events receives the callback audit trail. *eventlog.Recorder implements it.
type Events interface {
	Info(ctx context.Context, message string)
	Warn(ctx context.Context, message string)
}

// Result describes what a success callback did.
type Result struct {
	OrderID string
	// Created is true when the order did not exist before the callback.
	Created bool
}

// Reconciler turns provider callbacks into paid orders. A success callback
// for an order that already exists updates it in place; otherwise the order
// is rebuilt from the udf1 snapshot. Repeated deliveries of the same
// transaction never create a second order.
type Reconciler struct {
	Orders   OrderBook
	Events   Events
	Verifier Verifier
	Gateway  string
	Logger   *slog.Logger
}

func NewReconciler(book OrderBook, events Events, gateway string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		Orders:   book,
		Events:   events,
		Verifier: AcceptAll{},
		Gateway:  gateway,
		Logger:   logger,
	}
}

// HandleFailure records the failed payment. Orders are left untouched.
func (r *Reconciler) HandleFailure(ctx context.Context, f Fields) {
	r.Events.Warn(ctx, eventMessage("payu_failure", f))
}

func (r *Reconciler) HandleSuccess(ctx context.Context, f Fields) (*Result, error) {
	r.Events.Info(ctx, eventMessage("payu_success", f))

	if r.Verifier != nil {
		if err := r.Verifier.Verify(f); err != nil {
			r.Events.Warn(ctx, fmt.Sprintf("payu_untrusted txnid=%s: %v", f.Get("txnid"), err))
			return nil, fmt.Errorf("%w: %v", ErrUntrustedCallback, err)
		}
	}

	snap, _ := DecodeSnapshot(f.Get("udf1"))
	txnID := f.Get("txnid")
	update := r.paymentUpdate(resolveBuyer(snap, f), txnID)

	if id := f.Get("udf3"); id != "" {
		err := r.Orders.ApplyPayment(ctx, id, update)
		if err == nil {
			return &Result{OrderID: id}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("apply payment to %s: %w", id, err)
		}
		r.Logger.Warn("Callback references unknown order, rebuilding from snapshot", "order_id", id, "txnid", txnID)
	}

	if res, err := r.applyToExisting(ctx, txnID, update); res != nil || err != nil {
		return res, err
	}

	if snap == nil || len(snap.Items) == 0 {
		return nil, ErrMissingItems
	}

	order, err := r.Orders.Create(ctx, orders.Request{
		CustomerName:    update.CustomerName,
		CustomerEmail:   update.CustomerEmail,
		CustomerPhone:   update.CustomerPhone,
		ShippingAddress: update.ShippingAddress,
		Items:           snap.Items,
		Status:          update.Status,
		PaymentStatus:   update.PaymentStatus,
		PaymentGateway:  update.PaymentGateway,
		PayUTxnID:       update.PayUTxnID,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Another delivery of the same transaction won the insert.
		if res, ferr := r.applyToExisting(ctx, txnID, update); res != nil || ferr != nil {
			return res, ferr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order from snapshot: %w", err)
	}
	return &Result{OrderID: order.ID, Created: true}, nil
}

// applyToExisting updates the order already holding txnID. Both return
// values are nil when there is no such order.
func (r *Reconciler) applyToExisting(ctx context.Context, txnID string, u store.PaymentUpdate) (*Result, error) {
	if txnID == "" {
		return nil, nil
	}
	existing, err := r.Orders.FindByTxn(ctx, r.Gateway, txnID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by txn %s: %w", txnID, err)
	}
	if err := r.Orders.ApplyPayment(ctx, existing.ID, u); err != nil {
		return nil, fmt.Errorf("apply payment to %s: %w", existing.ID, err)
	}
	return &Result{OrderID: existing.ID}, nil
}

func (r *Reconciler) paymentUpdate(b buyer, txnID string) store.PaymentUpdate {
	return store.PaymentUpdate{
		CustomerName:    b.name,
		CustomerEmail:   b.email,
		CustomerPhone:   b.phone,
		ShippingAddress: b.address,
		Status:          orders.AfterPayment(models.StatusPaid),
		PaymentStatus:   models.PaymentPaid,
		PaymentGateway:  r.Gateway,
		PayUTxnID:       txnID,
	}
}

type buyer struct {
	name, email, phone, address string
}

// resolveBuyer prefers the snapshot, then the raw provider fields, then
// defaults.
func resolveBuyer(snap *orders.Request, f Fields) buyer {
	var s orders.Request
	if snap != nil {
		s = *snap
	}
	return buyer{
		name:    firstNonEmpty(s.CustomerName, f.Get("firstname"), "Customer"),
		email:   firstNonEmpty(s.CustomerEmail, f.Get("email")),
		phone:   firstNonEmpty(s.CustomerPhone, f.Get("phone")),
		address: firstNonEmpty(s.ShippingAddress, f.Get("udf2"), joinAddress(f), "Not provided"),
	}
}

func joinAddress(f Fields) string {
	zip := firstNonEmpty(f.Get("zipcode"), f.Get("zip"))
	var parts []string
	for _, p := range []string{f.Get("address1"), f.Get("address2"), f.Get("city"), f.Get("state"), zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func eventMessage(event string, f Fields) string {
	if txn := f.Get("txnid"); txn != "" {
		return event + " txnid=" + txn
	}
	return event
}
