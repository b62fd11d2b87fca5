package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// EntityType identifies which kind of business entity a canonical document
// mirrors. The set is closed; unknown values are rejected (or silently dropped
// for search filters).
type EntityType string

const (
	EntityProduct   EntityType = "product"
	EntityCustomer  EntityType = "customer"
	EntityManager   EntityType = "manager"
	EntityOrder     EntityType = "order"
	EntityOrderItem EntityType = "order_item"
)

// EntityTypes lists every valid entity type, in declaration order.
var EntityTypes = []EntityType{
	EntityProduct,
	EntityCustomer,
	EntityManager,
	EntityOrder,
	EntityOrderItem,
}

// BackfillableTypes lists the entity types the backfill engine can drive from
// relational source rows. Order line items are written by the order sync, so
// they are not independently backfillable.
var BackfillableTypes = []EntityType{
	EntityProduct,
	EntityCustomer,
	EntityManager,
	EntityOrder,
}

// CanonicalDocument is the deterministic snapshot of a business entity stored
// in the document index. A document is unique per (EntityType, EntityID);
// upserts overwrite content, embedding and metadata but never the identity pair.
type CanonicalDocument struct {
	EntityType      EntityType
	EntityID        int64
	ContentMarkdown string
	Embedding       []float32
	Metadata        map[string]string
	SourceUpdatedAt *time.Time
	UpdatedAt       time.Time
}

// FailureRecord is a dead-letter entry for an entity that failed indexing.
// IsPermanent is sticky: once set it is never reset to false by later
// transient failures.
type FailureRecord struct {
	EntityType    EntityType
	EntityID      int64
	FailureCount  int
	LastError     string
	IsPermanent   bool
	LastAttemptAt time.Time
}

// EntityReport holds per-entity-type counters for a backfill run.
type EntityReport struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failures int `json:"failures"`
}

// BackfillReport is the aggregate result of one backfill run. It is returned
// per run and never persisted.
type BackfillReport struct {
	DryRun    bool                         `json:"dryRun"`
	Total     int                          `json:"total"`
	Success   int                          `json:"success"`
	Failures  int                          `json:"failures"`
	PerEntity map[EntityType]*EntityReport `json:"perEntity"`
	ElapsedMs int64                        `json:"elapsedMs"`
}

// Entity returns the report bucket for the given type, creating it if needed.
func (r *BackfillReport) Entity(t EntityType) *EntityReport {
	if r.PerEntity == nil {
		r.PerEntity = make(map[EntityType]*EntityReport)
	}
	er, ok := r.PerEntity[t]
	if !ok {
		er = &EntityReport{}
		r.PerEntity[t] = er
	}
	return er
}

// ReprocessReport is the aggregate result of one dead-letter reprocessing pass.
type ReprocessReport struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failures int `json:"failures"`
}

// CorrelationContext carries per-request metadata threaded through the
// pipeline for log correlation. It is created once per external request and
// never persisted.
type CorrelationContext struct {
	CorrelationID string
	ActorUserID   string
	ActorRole     string
	StartedAt     time.Time
}

// NewCorrelation creates a correlation context with a fresh id.
func NewCorrelation(actorUserID, actorRole string) CorrelationContext {
	return CorrelationContext{
		CorrelationID: uuid.New().String(),
		ActorUserID:   actorUserID,
		ActorRole:     actorRole,
		StartedAt:     time.Now().UTC(),
	}
}

// SearchHit is one ranked result from a semantic search.
type SearchHit struct {
	EntityType EntityType        `json:"entityType"`
	EntityID   int64             `json:"entityId"`
	Score      float64           `json:"score"`
	Snippet    string            `json:"snippet"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DigestFromContent returns a deterministic hex digest of text using BLAKE2b.
// Identical content always produces an identical digest, which is what makes
// re-syncing an unchanged entity byte-idempotent.
func DigestFromContent(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
