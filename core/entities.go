package core

import "time"

// The types below mirror the relational rows the synchronizer snapshots.
// The surrounding storefront owns their lifecycle; this module only reads them.

// Product is a catalog product row.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Customer is a storefront customer row. Email and NationalID are raw PII and
// must never appear in canonical snapshots.
type Customer struct {
	UserID     int64
	Name       string
	Email      string
	NationalID string
	City       string
	State      string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Manager is a back-office manager row. Email is raw PII and must never
// appear in canonical snapshots.
type Manager struct {
	ID         int64
	Name       string
	Email      string
	Department string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order is a storefront order row.
type Order struct {
	ID             int64
	CustomerUserID int64
	Status         string
	TotalCents     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem is one line item of an order.
type OrderItem struct {
	ID             int64
	OrderID        int64
	ProductID      int64
	ProductName    string
	Quantity       int
	UnitPriceCents int64
}
