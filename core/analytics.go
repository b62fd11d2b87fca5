package core

// Aggregate shapes returned by the read-only analytics collaborator.

// SalesTotals summarizes order volume and revenue over a period.
type SalesTotals struct {
	OrderCount    int   `json:"orderCount"`
	RevenueCents  int64 `json:"revenueCents"`
	AvgOrderCents int64 `json:"avgOrderCents"`
}

// TopProduct is one row of the best-sellers ranking.
type TopProduct struct {
	ProductID    int64  `json:"productId"`
	Name         string `json:"name"`
	QuantitySold int    `json:"quantitySold"`
	RevenueCents int64  `json:"revenueCents"`
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CustomerCounts summarizes the customer base.
type CustomerCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// LowStockProduct is one row of the low-stock list.
type LowStockProduct struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// DailyRevenue is one day of the revenue series.
type DailyRevenue struct {
	Day          string `json:"day"` // YYYY-MM-DD
	OrderCount   int    `json:"orderCount"`
	RevenueCents int64  `json:"revenueCents"`
}
