package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentUpsertIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc := &core.CanonicalDocument{
		EntityType:      core.EntityProduct,
		EntityID:        7,
		ContentMarkdown: "# Produto\nCafeteira Premium",
		Embedding:       []float32{0.6, 0.8},
		Metadata:        map[string]string{"category": "eletro"},
		UpdatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))
	require.NoError(t, s.UpsertDocument(ctx, doc))

	got, err := s.GetDocument(ctx, core.EntityProduct, 7)
	require.NoError(t, err)
	assert.Equal(t, doc.ContentMarkdown, got.ContentMarkdown)
	assert.Equal(t, doc.Embedding, got.Embedding)
	assert.Equal(t, doc.Metadata, got.Metadata)

	n, err := s.CountDocuments(ctx, core.EntityProduct)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "upsert must overwrite, never duplicate the identity pair")
}

func TestDocumentUpsertOverwritesContent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc := &core.CanonicalDocument{
		EntityType:      core.EntityProduct,
		EntityID:        1,
		ContentMarkdown: "v1",
		Embedding:       []float32{1, 0},
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))

	doc.ContentMarkdown = "v2"
	doc.Embedding = []float32{0, 1}
	require.NoError(t, s.UpsertDocument(ctx, doc))

	got, err := s.GetDocument(ctx, core.EntityProduct, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.ContentMarkdown)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
}

func TestDeleteDocument(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc := &core.CanonicalDocument{
		EntityType: core.EntityCustomer, EntityID: 3,
		ContentMarkdown: "x", Embedding: []float32{1}, UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))
	require.NoError(t, s.DeleteDocument(ctx, core.EntityCustomer, 3))

	_, err := s.GetDocument(ctx, core.EntityCustomer, 3)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteDocument(ctx, core.EntityCustomer, 3))
}

func TestSearchSimilar_RanksAndFilters(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	docs := []*core.CanonicalDocument{
		{EntityType: core.EntityProduct, EntityID: 1, ContentMarkdown: "a", Embedding: []float32{1, 0}, UpdatedAt: time.Now().UTC()},
		{EntityType: core.EntityProduct, EntityID: 2, ContentMarkdown: "b", Embedding: []float32{0.9, 0.1}, UpdatedAt: time.Now().UTC()},
		{EntityType: core.EntityOrder, EntityID: 3, ContentMarkdown: "c", Embedding: []float32{1, 0}, UpdatedAt: time.Now().UTC()},
	}
	for _, d := range docs {
		require.NoError(t, s.UpsertDocument(ctx, d))
	}

	hits, err := s.SearchSimilar(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "scores must descend")
	}

	hits, err = s.SearchSimilar(ctx, []float32{1, 0}, 10, []core.EntityType{core.EntityOrder})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].Document.EntityID)

	hits, err = s.SearchSimilar(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSourceCountsAndPagination(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.SaveProduct(ctx, &core.Product{Name: "p", Active: true})
		require.NoError(t, err)
	}

	n, err := s.CountEntities(ctx, core.EntityProduct, storage.SourceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	page1, err := s.ListProducts(ctx, storage.SourceFilter{}, 0, 2)
	require.NoError(t, err)
	page2, err := s.ListProducts(ctx, storage.SourceFilter{}, 2, 2)
	require.NoError(t, err)
	page3, err := s.ListProducts(ctx, storage.SourceFilter{}, 4, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Len(t, page2, 2)
	assert.Len(t, page3, 1)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)

	id := page1[0].ID
	n, err = s.CountEntities(ctx, core.EntityProduct, storage.SourceFilter{EntityID: &id})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.CountEntities(ctx, core.EntityOrderItem, storage.SourceFilter{})
	assert.ErrorIs(t, err, storage.ErrUnsupportedEntityType)
}

func TestGetMissingRowsReturnNotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetCustomer(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetManager(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetOrder(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOrderItemsBulkLoad(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	custID, err := s.SaveCustomer(ctx, &core.Customer{Name: "Ana", Active: true})
	require.NoError(t, err)

	o1, err := s.SaveOrder(ctx, &core.Order{CustomerUserID: custID, Status: "paid", TotalCents: 500},
		[]*core.OrderItem{{ProductID: 1, ProductName: "Café", Quantity: 2, UnitPriceCents: 250}})
	require.NoError(t, err)
	o2, err := s.SaveOrder(ctx, &core.Order{CustomerUserID: custID, Status: "pending", TotalCents: 300},
		[]*core.OrderItem{
			{ProductID: 2, ProductName: "Filtro", Quantity: 1, UnitPriceCents: 100},
			{ProductID: 3, ProductName: "Caneca", Quantity: 1, UnitPriceCents: 200},
		})
	require.NoError(t, err)

	items, err := s.ListOrderItems(ctx, []int64{o1, o2})
	require.NoError(t, err)
	assert.Len(t, items[o1], 1)
	assert.Len(t, items[o2], 2)

	empty, err := s.ListOrderItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWithTransaction_RollsBackIndexAndBusinessWriteTogether(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := s.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.SaveProduct(txCtx, &core.Product{Name: "ghost", Active: true}); err != nil {
			return err
		}
		doc := &core.CanonicalDocument{
			EntityType: core.EntityProduct, EntityID: 1,
			ContentMarkdown: "ghost", Embedding: []float32{1}, UpdatedAt: time.Now().UTC(),
		}
		if err := s.UpsertDocument(txCtx, doc); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	n, err := s.CountEntities(ctx, core.EntityProduct, storage.SourceFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "business write must roll back")

	nd, err := s.CountDocuments(ctx, core.EntityProduct)
	require.NoError(t, err)
	assert.Zero(t, nd, "index write must roll back with it")
}

func TestAnalytics(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	custID, err := s.SaveCustomer(ctx, &core.Customer{Name: "Ana", Active: true})
	require.NoError(t, err)
	_, err = s.SaveCustomer(ctx, &core.Customer{Name: "Rui", Active: false})
	require.NoError(t, err)

	_, err = s.SaveOrder(ctx, &core.Order{CustomerUserID: custID, Status: "paid", TotalCents: 1000},
		[]*core.OrderItem{{ProductID: 1, ProductName: "Café", Quantity: 3, UnitPriceCents: 250}})
	require.NoError(t, err)
	_, err = s.SaveOrder(ctx, &core.Order{CustomerUserID: custID, Status: "cancelled", TotalCents: 9999},
		[]*core.OrderItem{{ProductID: 2, ProductName: "Filtro", Quantity: 1, UnitPriceCents: 9999}})
	require.NoError(t, err)

	totals, err := s.SalesTotals(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.OrderCount, "cancelled orders do not count toward revenue")
	assert.Equal(t, int64(1000), totals.RevenueCents)

	top, err := s.TopProducts(ctx, nil, nil, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Café", top[0].Name)
	assert.Equal(t, 3, top[0].QuantitySold)

	statuses, err := s.StatusCounts(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)

	cc, err := s.CustomerCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cc.Total)
	assert.Equal(t, 1, cc.Active)

	_, err = s.SaveProduct(ctx, &core.Product{Name: "Caneca", Stock: 2, Active: true})
	require.NoError(t, err)
	low, err := s.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Caneca", low[0].Name)

	daily, err := s.DailyRevenue(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(1000), daily[0].RevenueCents)
}

func TestDailyRevenue_GroupsByDay(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	dayOne := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 8, 31, 18, 40, 0, 0, time.UTC)

	_, err := s.SaveOrder(ctx, &core.Order{CustomerUserID: 1, Status: "paid", TotalCents: 1000, CreatedAt: dayOne},
		[]*core.OrderItem{{ProductID: 1, ProductName: "Café", Quantity: 1, UnitPriceCents: 1000}})
	require.NoError(t, err)
	_, err = s.SaveOrder(ctx, &core.Order{CustomerUserID: 1, Status: "paid", TotalCents: 500, CreatedAt: dayOne},
		[]*core.OrderItem{{ProductID: 2, ProductName: "Filtro", Quantity: 1, UnitPriceCents: 500}})
	require.NoError(t, err)
	_, err = s.SaveOrder(ctx, &core.Order{CustomerUserID: 1, Status: "paid", TotalCents: 2000, CreatedAt: dayTwo},
		[]*core.OrderItem{{ProductID: 3, ProductName: "Caneca", Quantity: 1, UnitPriceCents: 2000}})
	require.NoError(t, err)
	_, err = s.SaveOrder(ctx, &core.Order{CustomerUserID: 1, Status: "cancelled", TotalCents: 7777, CreatedAt: dayTwo},
		[]*core.OrderItem{{ProductID: 4, ProductName: "Bule", Quantity: 1, UnitPriceCents: 7777}})
	require.NoError(t, err)

	daily, err := s.DailyRevenue(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, daily, 2)

	assert.Equal(t, "2026-08-30", daily[0].Day)
	assert.Equal(t, 2, daily[0].OrderCount)
	assert.Equal(t, int64(1500), daily[0].RevenueCents)

	assert.Equal(t, "2026-08-31", daily[1].Day)
	assert.Equal(t, 1, daily[1].OrderCount)
	assert.Equal(t, int64(2000), daily[1].RevenueCents)
}
