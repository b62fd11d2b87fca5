package storage

import (
	"context"
	"time"

	"github.com/vitrineai/semdex/core"
)

// ScoredDocument is a canonical document with its similarity score attached.
type ScoredDocument struct {
	Document *core.CanonicalDocument
	Score    float64
}

// DocumentIndex stores and searches canonical documents. Implementations must
// be thread-safe and honor a transaction carried in the context, so an upsert
// can participate in the same atomic unit as the business mutation that
// triggered it.
type DocumentIndex interface {
	// UpsertDocument inserts or overwrites the document for its
	// (entity type, entity id) pair. The identity pair is never rewritten.
	UpsertDocument(ctx context.Context, doc *core.CanonicalDocument) error

	// DeleteDocument removes the document for the given key. Deleting a
	// missing document is not an error.
	DeleteDocument(ctx context.Context, entityType core.EntityType, entityID int64) error

	// GetDocument retrieves one document. Returns core.ErrNotFound if absent.
	GetDocument(ctx context.Context, entityType core.EntityType, entityID int64) (*core.CanonicalDocument, error)

	// SearchSimilar ranks documents by cosine similarity to the query vector,
	// descending, optionally restricted to the given entity types.
	SearchSimilar(ctx context.Context, vector []float32, limit int, entityTypes []core.EntityType) ([]*ScoredDocument, error)

	// CountDocuments returns the number of stored documents for one type.
	CountDocuments(ctx context.Context, entityType core.EntityType) (int, error)
}

// SourceFilter restricts source-row queries for backfill runs.
// Zero-value fields mean "no restriction".
type SourceFilter struct {
	From     *time.Time
	To       *time.Time
	EntityID *int64
}

// SourceStore exposes the storefront's relational rows for synchronization:
// typed counts, offset-paginated bulk loads, and single-row lookups.
type SourceStore interface {
	// CountEntities counts source rows of one backfillable type under the filter.
	CountEntities(ctx context.Context, entityType core.EntityType, filter SourceFilter) (int, error)

	ListProducts(ctx context.Context, filter SourceFilter, offset, limit int) ([]*core.Product, error)
	ListCustomers(ctx context.Context, filter SourceFilter, offset, limit int) ([]*core.Customer, error)
	ListManagers(ctx context.Context, filter SourceFilter, offset, limit int) ([]*core.Manager, error)
	ListOrders(ctx context.Context, filter SourceFilter, offset, limit int) ([]*core.Order, error)

	// ListOrderItems bulk-loads the line items for a set of orders in one
	// query, keyed by order id, to avoid per-row re-querying.
	ListOrderItems(ctx context.Context, orderIDs []int64) (map[int64][]*core.OrderItem, error)

	// Single-row lookups return core.ErrNotFound when the row is gone.
	GetProduct(ctx context.Context, id int64) (*core.Product, error)
	GetCustomer(ctx context.Context, userID int64) (*core.Customer, error)
	GetManager(ctx context.Context, id int64) (*core.Manager, error)
	GetOrder(ctx context.Context, id int64) (*core.Order, error)
}

// Analytics exposes the read-only aggregate queries behind the exact-aggregate
// tool. Nil time bounds mean "all time".
type Analytics interface {
	SalesTotals(ctx context.Context, from, to *time.Time) (*core.SalesTotals, error)
	TopProducts(ctx context.Context, from, to *time.Time, limit int) ([]*core.TopProduct, error)
	StatusCounts(ctx context.Context, from, to *time.Time) ([]*core.StatusCount, error)
	CustomerCounts(ctx context.Context) (*core.CustomerCounts, error)
	LowStock(ctx context.Context, threshold int) ([]*core.LowStockProduct, error)
	DailyRevenue(ctx context.Context, from, to *time.Time) ([]*core.DailyRevenue, error)
}

const (
	// DefaultFailureLimit applies when FailureQuery.Limit is zero.
	DefaultFailureLimit = 200

	// MaxFailureLimit caps FailureQuery.Limit.
	MaxFailureLimit = 1000
)

// FailureQuery restricts dead-letter listings.
type FailureQuery struct {
	// EntityType restricts to one type when non-empty.
	EntityType core.EntityType

	// IncludePermanent also returns records flagged permanent.
	IncludePermanent bool

	// Limit caps the result count. Implementations clamp it to [1, 1000],
	// defaulting to 200 when zero.
	Limit int
}

// FailureLedger persists per-entity failure counters and permanence flags.
type FailureLedger interface {
	// UpsertFailure records a failed attempt: increments the counter,
	// ORs the permanence flag (sticky, never reset), overwrites the last
	// error and refreshes the attempt timestamp.
	UpsertFailure(ctx context.Context, entityType core.EntityType, entityID int64, cause error) (*core.FailureRecord, error)

	// DeleteFailure removes the record for a key after a successful sync.
	// Deleting a missing record is not an error.
	DeleteFailure(ctx context.Context, entityType core.EntityType, entityID int64) error

	// GetFailure retrieves one record. Returns core.ErrNotFound if absent.
	GetFailure(ctx context.Context, entityType core.EntityType, entityID int64) (*core.FailureRecord, error)

	// ListFailures returns matching records, most recent attempt first.
	ListFailures(ctx context.Context, q FailureQuery) ([]*core.FailureRecord, error)

	// Close releases the underlying store.
	Close() error
}
