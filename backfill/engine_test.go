package backfill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/embed/mock"
	"github.com/vitrineai/semdex/storage"
	"github.com/vitrineai/semdex/syncer"
)

// memIndex is a minimal in-memory document index.
type memIndex struct {
	mu   sync.Mutex
	docs map[string]*core.CanonicalDocument
}

func newMemIndex() *memIndex {
	return &memIndex{docs: make(map[string]*core.CanonicalDocument)}
}

func docKey(t core.EntityType, id int64) string { return fmt.Sprintf("%s:%d", t, id) }

func (m *memIndex) UpsertDocument(ctx context.Context, doc *core.CanonicalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey(doc.EntityType, doc.EntityID)] = doc
	return nil
}

func (m *memIndex) DeleteDocument(ctx context.Context, t core.EntityType, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey(t, id))
	return nil
}

func (m *memIndex) GetDocument(ctx context.Context, t core.EntityType, id int64) (*core.CanonicalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey(t, id)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return doc, nil
}

func (m *memIndex) SearchSimilar(ctx context.Context, vector []float32, limit int, types []core.EntityType) ([]*storage.ScoredDocument, error) {
	return nil, nil
}

func (m *memIndex) CountDocuments(ctx context.Context, t core.EntityType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.docs {
		if d.EntityType == t {
			n++
		}
	}
	return n, nil
}

// memSource is a fixed in-memory source store.
type memSource struct {
	products  []*core.Product
	customers []*core.Customer
	managers  []*core.Manager
	orders    []*core.Order
	items     map[int64][]*core.OrderItem
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (m *memSource) CountEntities(ctx context.Context, t core.EntityType, f storage.SourceFilter) (int, error) {
	switch t {
	case core.EntityProduct:
		if f.EntityID != nil {
			for _, p := range m.products {
				if p.ID == *f.EntityID {
					return 1, nil
				}
			}
			return 0, nil
		}
		return len(m.products), nil
	case core.EntityCustomer:
		return len(m.customers), nil
	case core.EntityManager:
		return len(m.managers), nil
	case core.EntityOrder:
		return len(m.orders), nil
	default:
		return 0, storage.ErrUnsupportedEntityType
	}
}

func (m *memSource) ListProducts(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Product, error) {
	if f.EntityID != nil {
		for _, p := range m.products {
			if p.ID == *f.EntityID {
				return []*core.Product{p}, nil
			}
		}
		return nil, nil
	}
	return page(m.products, offset, limit), nil
}

func (m *memSource) ListCustomers(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Customer, error) {
	return page(m.customers, offset, limit), nil
}

func (m *memSource) ListManagers(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Manager, error) {
	return page(m.managers, offset, limit), nil
}

func (m *memSource) ListOrders(ctx context.Context, f storage.SourceFilter, offset, limit int) ([]*core.Order, error) {
	return page(m.orders, offset, limit), nil
}

func (m *memSource) ListOrderItems(ctx context.Context, orderIDs []int64) (map[int64][]*core.OrderItem, error) {
	out := make(map[int64][]*core.OrderItem)
	for _, id := range orderIDs {
		if items, ok := m.items[id]; ok {
			out[id] = items
		}
	}
	return out, nil
}

func (m *memSource) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSource) GetCustomer(ctx context.Context, userID int64) (*core.Customer, error) {
	for _, c := range m.customers {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSource) GetManager(ctx context.Context, id int64) (*core.Manager, error) {
	for _, mg := range m.managers {
		if mg.ID == id {
			return mg, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSource) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, core.ErrNotFound
}

// memLedger is an in-memory failure ledger recording upserts and deletes.
type memLedger struct {
	mu      sync.Mutex
	records map[string]*core.FailureRecord
	deletes int
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*core.FailureRecord)}
}

func (l *memLedger) UpsertFailure(ctx context.Context, t core.EntityType, id int64, cause error) (*core.FailureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := docKey(t, id)
	rec, ok := l.records[k]
	if !ok {
		rec = &core.FailureRecord{EntityType: t, EntityID: id}
		l.records[k] = rec
	}
	rec.FailureCount++
	rec.LastError = cause.Error()
	rec.IsPermanent = rec.IsPermanent || core.IsPermanent(cause)
	return rec, nil
}

func (l *memLedger) DeleteFailure(ctx context.Context, t core.EntityType, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, docKey(t, id))
	l.deletes++
	return nil
}

func (l *memLedger) GetFailure(ctx context.Context, t core.EntityType, id int64) (*core.FailureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[docKey(t, id)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec, nil
}

func (l *memLedger) ListFailures(ctx context.Context, q storage.FailureQuery) ([]*core.FailureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*core.FailureRecord
	for _, rec := range l.records {
		if q.EntityType != "" && rec.EntityType != q.EntityType {
			continue
		}
		if rec.IsPermanent && !q.IncludePermanent {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *memLedger) Close() error { return nil }

type fixture struct {
	engine   *Engine
	index    *memIndex
	source   *memSource
	ledger   *memLedger
	embedder *mock.MockEmbedder
}

func setupEngine(t *testing.T, source *memSource) *fixture {
	t.Helper()
	index := newMemIndex()
	embedder := mock.NewMockEmbedder()
	s, err := syncer.New(embedder, index)
	require.NoError(t, err)
	t.Cleanup(s.Release)

	ledger := newMemLedger()
	cfg := DefaultConfig()
	cfg.BatchSize = 2

	engine, err := NewEngine(source, s, ledger, cfg, nil)
	require.NoError(t, err)
	return &fixture{engine: engine, index: index, source: source, ledger: ledger, embedder: embedder}
}

func sampleSource() *memSource {
	return &memSource{
		products: []*core.Product{
			{ID: 1, Name: "Cafeteira", Active: true},
			{ID: 2, Name: "Moedor", Active: true},
			{ID: 3, Name: "Chaleira", Active: true},
		},
		customers: []*core.Customer{{UserID: 7, Name: "Ana", Active: true}},
		managers:  []*core.Manager{{ID: 4, Name: "Rui", Active: true}},
		orders:    []*core.Order{{ID: 9, CustomerUserID: 7, Status: "paid", TotalCents: 100}},
		items: map[int64][]*core.OrderItem{
			9: {{ID: 1, OrderID: 9, ProductID: 1, ProductName: "Cafeteira", Quantity: 1, UnitPriceCents: 100}},
		},
	}
}

func TestRun_DryRunCountsWithoutSyncing(t *testing.T) {
	f := setupEngine(t, sampleSource())

	report, err := f.engine.Run(context.Background(), Request{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 6, report.Total)
	assert.Zero(t, report.Success)
	assert.Zero(t, report.Failures)
	assert.Equal(t, 3, report.PerEntity[core.EntityProduct].Total)

	n, err := f.index.CountDocuments(context.Background(), core.EntityProduct)
	require.NoError(t, err)
	assert.Zero(t, n, "dry run must not write documents")
}

func TestRun_SyncsAllTypes(t *testing.T) {
	f := setupEngine(t, sampleSource())
	ctx := context.Background()

	report, err := f.engine.Run(ctx, Request{})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 6, report.Success)
	assert.Zero(t, report.Failures)
	assert.GreaterOrEqual(t, report.ElapsedMs, int64(0))

	for _, check := range []struct {
		t  core.EntityType
		id int64
	}{
		{core.EntityProduct, 1}, {core.EntityProduct, 2}, {core.EntityProduct, 3},
		{core.EntityCustomer, 7}, {core.EntityManager, 4}, {core.EntityOrder, 9},
	} {
		_, err := f.index.GetDocument(ctx, check.t, check.id)
		assert.NoError(t, err, "expected document %s/%d", check.t, check.id)
	}

	// The order's line item also got indexed.
	n, err := f.index.CountDocuments(ctx, core.EntityOrderItem)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_SingleEntityFilter(t *testing.T) {
	f := setupEngine(t, sampleSource())
	id := int64(2)

	report, err := f.engine.Run(context.Background(), Request{
		EntityTypes: []core.EntityType{core.EntityProduct},
		EntityID:    &id,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Success)
}

func TestRun_EntityIDRequiresSingleType(t *testing.T) {
	f := setupEngine(t, sampleSource())
	id := int64(2)

	_, err := f.engine.Run(context.Background(), Request{EntityID: &id})
	assert.ErrorIs(t, err, ErrEntityIDNeedsSingleType)

	_, err = f.engine.Run(context.Background(), Request{
		EntityTypes: []core.EntityType{core.EntityProduct, core.EntityOrder},
		EntityID:    &id,
	})
	assert.ErrorIs(t, err, ErrEntityIDNeedsSingleType)
}

func TestRun_RejectsNonBackfillableType(t *testing.T) {
	f := setupEngine(t, sampleSource())

	_, err := f.engine.Run(context.Background(), Request{
		EntityTypes: []core.EntityType{core.EntityOrderItem},
	})
	assert.ErrorIs(t, err, storage.ErrUnsupportedEntityType)
}

func TestRun_RecordsFailuresAndContinues(t *testing.T) {
	f := setupEngine(t, sampleSource())
	ctx := context.Background()

	attempts := 0
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		// Product 2's snapshot fails every time; everything else succeeds.
		if strings.Contains(text, "Moedor") {
			attempts++
			return nil, errors.New("embedding backend down")
		}
		return []float32{1, 0}, nil
	}

	report, err := f.engine.Run(ctx, Request{EntityTypes: []core.EntityType{core.EntityProduct}, MaxItemAttempts: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 2, attempts, "transient errors retry up to the attempt bound")

	rec, err := f.ledger.GetFailure(ctx, core.EntityProduct, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)
	assert.False(t, rec.IsPermanent)
}

func TestReprocessFailures_DeletesOnSuccess(t *testing.T) {
	f := setupEngine(t, sampleSource())
	ctx := context.Background()

	_, err := f.ledger.UpsertFailure(ctx, core.EntityProduct, 2, errors.New("was down"))
	require.NoError(t, err)

	report, err := f.engine.ReprocessFailures(ctx, storage.FailureQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Success)
	assert.Zero(t, report.Failures)

	_, err = f.ledger.GetFailure(ctx, core.EntityProduct, 2)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.index.GetDocument(ctx, core.EntityProduct, 2)
	assert.NoError(t, err, "reprocessed row gets indexed")
}

func TestReprocessFailures_MissingRowBecomesPermanent(t *testing.T) {
	f := setupEngine(t, sampleSource())
	ctx := context.Background()

	_, err := f.ledger.UpsertFailure(ctx, core.EntityProduct, 999, errors.New("was down"))
	require.NoError(t, err)

	report, err := f.engine.ReprocessFailures(ctx, storage.FailureQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Failures)

	rec, err := f.ledger.GetFailure(ctx, core.EntityProduct, 999)
	require.NoError(t, err)
	assert.True(t, rec.IsPermanent, "vanished source rows are permanent failures")
	assert.Equal(t, 2, rec.FailureCount)
}

func TestReprocessFailures_ReupsertsOnFailure(t *testing.T) {
	f := setupEngine(t, sampleSource())
	ctx := context.Background()

	_, err := f.ledger.UpsertFailure(ctx, core.EntityProduct, 2, errors.New("was down"))
	require.NoError(t, err)

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("still down")
	}

	report, err := f.engine.ReprocessFailures(ctx, storage.FailureQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)

	rec, err := f.ledger.GetFailure(ctx, core.EntityProduct, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.FailureCount)
	assert.Contains(t, rec.LastError, "still down")
}

func TestNewEngineValidation(t *testing.T) {
	index := newMemIndex()
	s, err := syncer.New(mock.NewMockEmbedder(), index)
	require.NoError(t, err)
	defer s.Release()
	ledger := newMemLedger()
	source := sampleSource()

	_, err = NewEngine(nil, s, ledger, nil, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)
	_, err = NewEngine(source, nil, ledger, nil, nil)
	assert.ErrorIs(t, err, ErrSyncerRequired)
	_, err = NewEngine(source, s, nil, nil, nil)
	assert.ErrorIs(t, err, ErrLedgerRequired)
	_, err = NewEngine(source, s, ledger, &Config{BatchSize: 0, MaxItemAttempts: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}
