// Copyright 2025 Vitrine AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syncer keeps the document index consistent with relational state.
// It builds canonical markdown snapshots from business entities, embeds
// them and upserts them into the index, and answers semantic queries.
package syncer

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/embed"
	"github.com/vitrineai/semdex/storage"
)

// Synchronizer translates relational entities into canonical documents.
//
// Sync methods honor the caller's context: when the context was opened by
// the store's WithTransaction, the index write joins the same transaction
// as the triggering business mutation. A plain context runs standalone.
type Synchronizer struct {
	embedder embed.Embedder
	index    storage.DocumentIndex
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer) error

// WithPoolSize sets the worker pool size for async submissions.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Synchronizer) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Synchronizer over the given embedder and index.
func New(embedder embed.Embedder, index storage.DocumentIndex, opts ...Option) (*Synchronizer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Synchronizer{
		embedder: embedder,
		index:    index,
		pool:     pool,
		logger:   slog.Default().With("component", "syncer"),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Release shuts down the async pool. Pending tasks are discarded.
func (s *Synchronizer) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// upsert embeds content and writes the canonical document. The identity
// pair (entityType, entityID) is never changed by an overwrite.
func (s *Synchronizer) upsert(ctx context.Context, entityType core.EntityType, entityID int64, content string, metadata map[string]string, sourceUpdatedAt time.Time) error {
	vector, err := s.embedder.EmbedText(ctx, content)
	if err != nil {
		return err
	}

	doc := &core.CanonicalDocument{
		EntityType:      entityType,
		EntityID:        entityID,
		ContentMarkdown: content,
		Embedding:       vector,
		Metadata:        metadata,
		UpdatedAt:       time.Now().UTC(),
	}
	if !sourceUpdatedAt.IsZero() {
		t := sourceUpdatedAt
		doc.SourceUpdatedAt = &t
	}

	if err := s.index.UpsertDocument(ctx, doc); err != nil {
		return err
	}

	s.logger.Debug("document synced", "entity_type", entityType, "entity_id", entityID)
	return nil
}

// SyncProduct indexes one product.
func (s *Synchronizer) SyncProduct(ctx context.Context, p *core.Product) error {
	if p == nil {
		return ErrNilRecord
	}
	content, metadata := productSnapshot(p)
	return s.upsert(ctx, core.EntityProduct, p.ID, content, metadata, p.UpdatedAt)
}

// SyncCustomer indexes one customer. The snapshot carries no raw PII.
func (s *Synchronizer) SyncCustomer(ctx context.Context, c *core.Customer) error {
	if c == nil {
		return ErrNilRecord
	}
	content, metadata := customerSnapshot(c)
	return s.upsert(ctx, core.EntityCustomer, c.UserID, content, metadata, c.UpdatedAt)
}

// SyncManager indexes one manager. The snapshot carries no raw PII.
func (s *Synchronizer) SyncManager(ctx context.Context, m *core.Manager) error {
	if m == nil {
		return ErrNilRecord
	}
	content, metadata := managerSnapshot(m)
	return s.upsert(ctx, core.EntityManager, m.ID, content, metadata, m.UpdatedAt)
}

// SyncOrder indexes one order together with its line items. Each item also
// gets its own order_item document so item-level detail stays searchable.
func (s *Synchronizer) SyncOrder(ctx context.Context, o *core.Order, items []*core.OrderItem) error {
	if o == nil {
		return ErrNilRecord
	}
	content, metadata := orderSnapshot(o, items)
	if err := s.upsert(ctx, core.EntityOrder, o.ID, content, metadata, o.UpdatedAt); err != nil {
		return err
	}
	for _, it := range items {
		itemContent, itemMeta := orderItemSnapshot(o, it)
		if err := s.upsert(ctx, core.EntityOrderItem, it.ID, itemContent, itemMeta, o.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocument removes an entity's canonical document, typically when
// the owning business entity is deactivated or removed.
func (s *Synchronizer) DeleteDocument(ctx context.Context, entityType core.EntityType, entityID int64) error {
	if !core.ValidEntityType(entityType) {
		return core.ErrInvalidEntityType
	}
	return s.index.DeleteDocument(ctx, entityType, entityID)
}

// SubmitAsync runs fn on the worker pool, detached from the caller's
// request. Errors are logged, never returned: fire-and-forget indexing
// must not fail the business mutation that triggered it.
func (s *Synchronizer) SubmitAsync(fn func(ctx context.Context) error) error {
	return s.pool.Submit(func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Error("async sync failed", "err", err)
		}
	})
}
