package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

var _ storage.Analytics = (*Store)(nil)

// Non-cancelled orders count toward revenue.
const revenueStatusFilter = "status != 'cancelled'"

func periodClause(column string, from, to *time.Time) (string, []any) {
	clause := ""
	var args []any
	if from != nil {
		clause += " AND " + column + " >= ?"
		args = append(args, from.UTC())
	}
	if to != nil {
		clause += " AND " + column + " < ?"
		args = append(args, to.UTC())
	}
	return clause, args
}

// SalesTotals returns order count, revenue and average ticket for the period.
func (s *Store) SalesTotals(ctx context.Context, from, to *time.Time) (*core.SalesTotals, error) {
	clause, args := periodClause("created_at", from, to)

	var t core.SalesTotals
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(CAST(AVG(total_cents) AS INTEGER), 0)
		FROM orders WHERE `+revenueStatusFilter+clause, args...).
		Scan(&t.OrderCount, &t.RevenueCents, &t.AvgOrderCents)
	if err != nil {
		return nil, fmt.Errorf("querying sales totals: %w", err)
	}
	return &t, nil
}

// TopProducts ranks products by quantity sold in the period.
func (s *Store) TopProducts(ctx context.Context, from, to *time.Time, limit int) ([]*core.TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	clause, args := periodClause("o.created_at", from, to)
	args = append(args, limit)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT oi.product_id, oi.product_name, SUM(oi.quantity), SUM(oi.quantity * oi.unit_price_cents)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.`+revenueStatusFilter+clause+`
		GROUP BY oi.product_id, oi.product_name
		ORDER BY SUM(oi.quantity) DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying top products: %w", err)
	}
	defer rows.Close()

	var out []*core.TopProduct
	for rows.Next() {
		var tp core.TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.QuantitySold, &tp.RevenueCents); err != nil {
			return nil, fmt.Errorf("scanning top product: %w", err)
		}
		out = append(out, &tp)
	}
	return out, rows.Err()
}

// StatusCounts returns order counts grouped by status for the period.
func (s *Store) StatusCounts(ctx context.Context, from, to *time.Time) ([]*core.StatusCount, error) {
	clause, args := periodClause("created_at", from, to)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT status, COUNT(*) FROM orders WHERE 1=1`+clause+`
		GROUP BY status ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	var out []*core.StatusCount
	for rows.Next() {
		var sc core.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		out = append(out, &sc)
	}
	return out, rows.Err()
}

// CustomerCounts summarizes the customer base.
func (s *Store) CustomerCounts(ctx context.Context) (*core.CustomerCounts, error) {
	var c core.CustomerCounts
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0)
		FROM customers`).Scan(&c.Total, &c.Active)
	if err != nil {
		return nil, fmt.Errorf("querying customer counts: %w", err)
	}
	return &c, nil
}

// LowStock lists active products at or below the stock threshold, lowest first.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]*core.LowStockProduct, error) {
	if threshold <= 0 {
		threshold = 10
	}

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, stock FROM products
		WHERE active = 1 AND stock <= ?
		ORDER BY stock ASC, id ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying low stock: %w", err)
	}
	defer rows.Close()

	var out []*core.LowStockProduct
	for rows.Next() {
		var p core.LowStockProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Stock); err != nil {
			return nil, fmt.Errorf("scanning low stock row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DailyRevenue returns the per-day revenue series for the period, ascending.
func (s *Store) DailyRevenue(ctx context.Context, from, to *time.Time) ([]*core.DailyRevenue, error) {
	clause, args := periodClause("created_at", from, to)

	// The driver binds time.Time as Go's default string form, which SQLite's
	// date functions cannot parse. The stored literal starts YYYY-MM-DD, so the
	// day is its first 10 bytes.
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT substr(created_at, 1, 10), COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM orders WHERE `+revenueStatusFilter+clause+`
		GROUP BY substr(created_at, 1, 10)
		ORDER BY 1 ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily revenue: %w", err)
	}
	defer rows.Close()

	var out []*core.DailyRevenue
	for rows.Next() {
		var d core.DailyRevenue
		if err := rows.Scan(&d.Day, &d.OrderCount, &d.RevenueCents); err != nil {
			return nil, fmt.Errorf("scanning daily revenue row: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
