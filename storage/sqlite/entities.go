package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

var _ storage.SourceStore = (*Store)(nil)

// dateColumn names the column source filters apply to. Orders filter on their
// creation date; the mutable types filter on last update.
func dateColumn(entityType core.EntityType) string {
	if entityType == core.EntityOrder {
		return "created_at"
	}
	return "updated_at"
}

func sourceTable(entityType core.EntityType) (table, idColumn string, err error) {
	switch entityType {
	case core.EntityProduct:
		return "products", "id", nil
	case core.EntityCustomer:
		return "customers", "user_id", nil
	case core.EntityManager:
		return "managers", "id", nil
	case core.EntityOrder:
		return "orders", "id", nil
	default:
		return "", "", fmt.Errorf("%w: %q", storage.ErrUnsupportedEntityType, entityType)
	}
}

func filterClause(idColumn, dateCol string, f storage.SourceFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.EntityID != nil {
		clauses = append(clauses, idColumn+" = ?")
		args = append(args, *f.EntityID)
	}
	if f.From != nil {
		clauses = append(clauses, dateCol+" >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, dateCol+" < ?")
		args = append(args, f.To.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CountEntities counts source rows of one backfillable type under the filter.
func (s *Store) CountEntities(ctx context.Context, entityType core.EntityType, f storage.SourceFilter) (int, error) {
	table, idCol, err := sourceTable(entityType)
	if err != nil {
		return 0, err
	}
	where, args := filterClause(idCol, dateColumn(entityType), f)

	var n int
	if err := s.conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s rows: %w", entityType, err)
	}
	return n, nil
}

// ListProducts bulk-loads products under the filter, ordered by id.
func (s *Store) ListProducts(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Product, error) {
	where, args := filterClause("id", "updated_at", f)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, description, category, price_cents, stock, active, created_at, updated_at
		FROM products`+where+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var out []*core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCustomers bulk-loads customers under the filter, ordered by user id.
func (s *Store) ListCustomers(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Customer, error) {
	where, args := filterClause("user_id", "updated_at", f)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT user_id, name, email, national_id, city, state, active, created_at, updated_at
		FROM customers`+where+` ORDER BY user_id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var out []*core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListManagers bulk-loads managers under the filter, ordered by id.
func (s *Store) ListManagers(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Manager, error) {
	where, args := filterClause("id", "updated_at", f)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, email, department, active, created_at, updated_at
		FROM managers`+where+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing managers: %w", err)
	}
	defer rows.Close()

	var out []*core.Manager
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListOrders bulk-loads orders under the filter, ordered by id.
func (s *Store) ListOrders(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Order, error) {
	where, args := filterClause("id", "created_at", f)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, customer_user_id, status, total_cents, created_at, updated_at
		FROM orders`+where+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []*core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrderItems bulk-loads line items for a set of orders in one query,
// keyed by order id.
func (s *Store) ListOrderItems(ctx context.Context, orderIDs []int64) (map[int64][]*core.OrderItem, error) {
	out := make(map[int64][]*core.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_cents
		FROM order_items WHERE order_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY order_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it core.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		out[it.OrderID] = append(out[it.OrderID], &it)
	}
	return out, rows.Err()
}

// GetProduct retrieves one product row.
func (s *Store) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, category, price_cents, stock, active, created_at, updated_at
		FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, core.ErrNotFound)
	}
	return p, err
}

// GetCustomer retrieves one customer row by user id.
func (s *Store) GetCustomer(ctx context.Context, userID int64) (*core.Customer, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT user_id, name, email, national_id, city, state, active, created_at, updated_at
		FROM customers WHERE user_id = ?`, userID)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", userID, core.ErrNotFound)
	}
	return c, err
}

// GetManager retrieves one manager row.
func (s *Store) GetManager(ctx context.Context, id int64) (*core.Manager, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, email, department, active, created_at, updated_at
		FROM managers WHERE id = ?`, id)
	m, err := scanManager(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manager %d: %w", id, core.ErrNotFound)
	}
	return m, err
}

// GetOrder retrieves one order row.
func (s *Store) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, customer_user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, core.ErrNotFound)
	}
	return o, err
}

func scanProduct(r rowScanner) (*core.Product, error) {
	var p core.Product
	err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	return &p, nil
}

func scanCustomer(r rowScanner) (*core.Customer, error) {
	var c core.Customer
	err := r.Scan(&c.UserID, &c.Name, &c.Email, &c.NationalID, &c.City, &c.State, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning customer: %w", err)
	}
	return &c, nil
}

func scanManager(r rowScanner) (*core.Manager, error) {
	var m core.Manager
	err := r.Scan(&m.ID, &m.Name, &m.Email, &m.Department, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning manager: %w", err)
	}
	return &m, nil
}

func scanOrder(r rowScanner) (*core.Order, error) {
	var o core.Order
	err := r.Scan(&o.ID, &o.CustomerUserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	return &o, nil
}

// The writers below exist for the seeder, the demo CLI and tests. Production
// writes to these tables belong to the surrounding storefront application.

// SaveProduct inserts or updates a product row, returning its id.
func (s *Store) SaveProduct(ctx context.Context, p *core.Product) (int64, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if p.ID == 0 {
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO products (name, description, category, price_cents, stock, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Description, p.Category, p.PriceCents, p.Stock, p.Active, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("inserting product: %w", err)
		}
		p.ID, err = res.LastInsertId()
		return p.ID, err
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, category = ?, price_cents = ?, stock = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Category, p.PriceCents, p.Stock, p.Active, p.UpdatedAt, p.ID)
	if err != nil {
		return 0, fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	return p.ID, nil
}

// SaveCustomer inserts or updates a customer row, returning its user id.
func (s *Store) SaveCustomer(ctx context.Context, c *core.Customer) (int64, error) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if c.UserID == 0 {
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO customers (name, email, national_id, city, state, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.Email, c.NationalID, c.City, c.State, c.Active, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("inserting customer: %w", err)
		}
		c.UserID, err = res.LastInsertId()
		return c.UserID, err
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE customers SET name = ?, email = ?, national_id = ?, city = ?, state = ?, active = ?, updated_at = ?
		WHERE user_id = ?`,
		c.Name, c.Email, c.NationalID, c.City, c.State, c.Active, c.UpdatedAt, c.UserID)
	if err != nil {
		return 0, fmt.Errorf("updating customer %d: %w", c.UserID, err)
	}
	return c.UserID, nil
}

// SaveManager inserts or updates a manager row, returning its id.
func (s *Store) SaveManager(ctx context.Context, m *core.Manager) (int64, error) {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	if m.ID == 0 {
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO managers (name, email, department, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.Name, m.Email, m.Department, m.Active, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("inserting manager: %w", err)
		}
		m.ID, err = res.LastInsertId()
		return m.ID, err
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE managers SET name = ?, email = ?, department = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Email, m.Department, m.Active, m.UpdatedAt, m.ID)
	if err != nil {
		return 0, fmt.Errorf("updating manager %d: %w", m.ID, err)
	}
	return m.ID, nil
}

// SaveOrder inserts or updates an order row with its line items, returning
// the order id. Items are replaced wholesale on update.
func (s *Store) SaveOrder(ctx context.Context, o *core.Order, items []*core.OrderItem) (int64, error) {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	if o.ID == 0 {
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO orders (customer_user_id, status, total_cents, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			o.CustomerUserID, o.Status, o.TotalCents, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("inserting order: %w", err)
		}
		o.ID, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	} else {
		_, err := s.conn(ctx).ExecContext(ctx, `
			UPDATE orders SET customer_user_id = ?, status = ?, total_cents = ?, updated_at = ? WHERE id = ?`,
			o.CustomerUserID, o.Status, o.TotalCents, o.UpdatedAt, o.ID)
		if err != nil {
			return 0, fmt.Errorf("updating order %d: %w", o.ID, err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
			return 0, fmt.Errorf("clearing order items for %d: %w", o.ID, err)
		}
	}

	for _, it := range items {
		it.OrderID = o.ID
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents)
			VALUES (?, ?, ?, ?, ?)`,
			it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPriceCents)
		if err != nil {
			return 0, fmt.Errorf("inserting order item: %w", err)
		}
		it.ID, _ = res.LastInsertId()
	}
	return o.ID, nil
}
