package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalProducts  int              `json:"total_products"`
	TotalOrders    int              `json:"total_orders"`
	PaidRevenue    decimal.Decimal  `json:"paid_revenue"`
	OrdersByStatus map[string]int   `json:"orders_by_status"`
	TopProducts    []ProductOrdered `json:"top_products"`
}

type ProductOrdered struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int),
		TopProducts:    []ProductOrdered{},
	}

	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&stats.TotalProducts); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, "SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = 'paid'").Scan(&stats.PaidRevenue); err != nil {
		return nil, err
	}

	if err := s.ordersByStatus(ctx, stats.OrdersByStatus); err != nil {
		return nil, err
	}

	// Names come from the item snapshot, not the live catalog.
	itemRows, err := s.DB.QueryContext(ctx, `
		SELECT product_id, MAX(product_name), SUM(quantity) AS qty
		FROM order_items
		GROUP BY product_id
		ORDER BY qty DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var p ProductOrdered
		if err := itemRows.Scan(&p.ProductID, &p.ProductName, &p.Quantity); err != nil {
			return nil, err
		}
		stats.TopProducts = append(stats.TopProducts, p)
	}

	return stats, itemRows.Err()
}

func (s *Store) ordersByStatus(ctx context.Context, into map[string]int) error {
	rows, err := s.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		into[status] = count
	}
	return rows.Err()
}
