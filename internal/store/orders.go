package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kouprey/storefront/internal/models"
)

const orderColumns = `id, customer_name, customer_email, customer_phone, shipping_address, total, status, payment_status, payment_gateway, payu_txn_id, shipping_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.ShippingAddress,
		&o.Total, &o.Status, &o.PaymentStatus, &o.PaymentGateway, &o.PayUTxnID, &o.ShippingID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts the order and its items in one transaction. A clash on
// the order id or on (payment_gateway, payu_txn_id) returns ErrDuplicate.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.ShippingAddress,
		order.Total, order.Status, order.PaymentStatus, order.PaymentGateway, order.PayUTxnID,
		order.ShippingID, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", order.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, size, quantity, price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, it.ProductID, it.ProductName, it.Size, it.Quantity, it.Price)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}

	return tx.Commit()
}

// GetOrder returns the order with its line items.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := s.orderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, size, quantity, price
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.Size, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindOrderByTxn looks an order up by its payment idempotency key.
func (s *Store) FindOrderByTxn(ctx context.Context, gateway, txnID string) (*models.Order, error) {
	if txnID == "" {
		return nil, ErrNotFound
	}
	row := s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_gateway = ? AND payu_txn_id = ?`, gateway, txnID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ListOrders returns orders newest first. A limit <= 0 returns all of them.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, limit, offset)
}

func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	return count, err
}

func (s *Store) OrdersByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_phone = ?
		ORDER BY created_at DESC, rowid DESC`, phone)
}

// UnpaidOrders lists recent orders whose payment never completed.
func (s *Store) UnpaidOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_status != 'paid'
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
}

// PaymentUpdate is what a successful provider callback writes onto an
// existing order. Totals and items are never part of it.
type PaymentUpdate struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	Status          models.OrderStatus
	PaymentStatus   models.PaymentStatus
	PaymentGateway  string
	PayUTxnID       string
}

// ApplyPayment overwrites the buyer snapshot and payment fields of an order.
// Re-applying the same update is harmless. An update without a txn id keeps
// the stored (gateway, txn) pair, since later deliveries are matched on it.
func (s *Store) ApplyPayment(ctx context.Context, id string, u PaymentUpdate) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = ?, customer_email = ?, customer_phone = ?, shipping_address = ?,
			payment_status = ?, status = ?,
			payment_gateway = CASE WHEN ? = '' THEN payment_gateway ELSE ? END,
			payu_txn_id = COALESCE(NULLIF(?, ''), payu_txn_id)
		WHERE id = ?`,
		u.CustomerName, u.CustomerEmail, u.CustomerPhone, u.ShippingAddress,
		u.PaymentStatus, u.Status, u.PayUTxnID, u.PaymentGateway, u.PayUTxnID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("txn %s: %w", u.PayUTxnID, ErrDuplicate)
		}
		return err
	}
	return expectOneRow(res)
}

// UpdateFulfillment sets the staff-managed status. An empty shippingID
// keeps the one already recorded.
func (s *Store) UpdateFulfillment(ctx context.Context, id string, status models.OrderStatus, shippingID string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, shipping_id = COALESCE(NULLIF(?, ''), shipping_id)
		WHERE id = ?`, status, shippingID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
