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

// Package backfill walks the relational source tables and (re)indexes
// their rows through the synchronizer, with bounded per-item retries and
// a dead-letter ledger for rows that keep failing.
package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
	"github.com/vitrineai/semdex/syncer"
)

// Engine drives backfill runs and dead-letter reprocessing.
type Engine struct {
	source   storage.SourceStore
	syncer   *syncer.Synchronizer
	ledger   storage.FailureLedger
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewEngine creates a backfill engine. A nil config uses DefaultConfig;
// a nil progress writer disables progress reporting.
func NewEngine(source storage.SourceStore, sync *syncer.Synchronizer, ledger storage.FailureLedger, config *Config, progress io.Writer) (*Engine, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if sync == nil {
		return nil, ErrSyncerRequired
	}
	if ledger == nil {
		return nil, ErrLedgerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Engine{
		source:   source,
		syncer:   sync,
		ledger:   ledger,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "backfill"),
	}, nil
}

// Run executes one backfill pass per the request. The returned report is
// always non-nil on success; item-level failures are counted and recorded
// in the ledger, never fatal. Only infrastructure errors (source queries,
// context cancellation) abort the run.
func (e *Engine) Run(ctx context.Context, req Request) (*core.BackfillReport, error) {
	types := req.EntityTypes
	if len(types) == 0 {
		types = core.BackfillableTypes
	}
	for _, t := range types {
		if !isBackfillable(t) {
			return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedEntityType, t)
		}
	}
	if req.EntityID != nil && len(types) != 1 {
		return nil, ErrEntityIDNeedsSingleType
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = e.config.BatchSize
	}
	maxAttempts := req.MaxItemAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.config.MaxItemAttempts
	}
	threshold := req.FailureAlertThreshold
	if threshold <= 0 {
		threshold = e.config.FailureAlertThreshold
	}

	filter := storage.SourceFilter{From: req.From, To: req.To, EntityID: req.EntityID}
	report := &core.BackfillReport{DryRun: req.DryRun}
	started := time.Now()

	e.logger.Info("backfill started",
		"entity_types", types,
		"dry_run", req.DryRun,
		"batch_size", batchSize)

	for _, t := range types {
		count, err := e.source.CountEntities(ctx, t, filter)
		if err != nil {
			return nil, fmt.Errorf("counting %s rows: %w", t, err)
		}
		bucket := report.Entity(t)
		bucket.Total = count
		report.Total += count

		if req.DryRun || count == 0 {
			continue
		}

		tracker := NewProgressTracker(e.progress, count, e.config.ReportInterval)
		tracker.Start()

		for offset := 0; offset < count; offset += batchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			processed, succeeded, err := e.runBatch(ctx, t, filter, offset, batchSize, maxAttempts)
			if err != nil {
				return nil, err
			}
			bucket.Success += succeeded
			bucket.Failures += processed - succeeded
			tracker.Increment(processed)
		}
		tracker.Finish()

		report.Success += bucket.Success
		report.Failures += bucket.Failures
	}

	report.ElapsedMs = time.Since(started).Milliseconds()

	if report.Total > 0 {
		rate := float64(report.Failures) / float64(report.Total)
		if rate >= threshold {
			// Alert only; the run still reports success.
			e.logger.Warn("backfill failure rate above threshold",
				"failures", report.Failures,
				"total", report.Total,
				"rate", rate,
				"threshold", threshold)
		}
	}

	e.logger.Info("backfill finished",
		"total", report.Total,
		"success", report.Success,
		"failures", report.Failures,
		"elapsed_ms", report.ElapsedMs)

	return report, nil
}

// runBatch loads one page of rows for t and syncs each with bounded
// retries. Returns how many items it processed and how many succeeded.
func (e *Engine) runBatch(ctx context.Context, t core.EntityType, filter storage.SourceFilter, offset, limit, maxAttempts int) (processed, succeeded int, err error) {
	switch t {
	case core.EntityProduct:
		rows, err := e.source.ListProducts(ctx, filter, offset, limit)
		if err != nil {
			return 0, 0, err
		}
		for _, p := range rows {
			processed++
			if e.syncOne(ctx, t, p.ID, maxAttempts, func(ctx context.Context) error {
				return e.syncer.SyncProduct(ctx, p)
			}) {
				succeeded++
			}
		}

	case core.EntityCustomer:
		rows, err := e.source.ListCustomers(ctx, filter, offset, limit)
		if err != nil {
			return 0, 0, err
		}
		for _, c := range rows {
			processed++
			if e.syncOne(ctx, t, c.UserID, maxAttempts, func(ctx context.Context) error {
				return e.syncer.SyncCustomer(ctx, c)
			}) {
				succeeded++
			}
		}

	case core.EntityManager:
		rows, err := e.source.ListManagers(ctx, filter, offset, limit)
		if err != nil {
			return 0, 0, err
		}
		for _, m := range rows {
			processed++
			if e.syncOne(ctx, t, m.ID, maxAttempts, func(ctx context.Context) error {
				return e.syncer.SyncManager(ctx, m)
			}) {
				succeeded++
			}
		}

	case core.EntityOrder:
		rows, err := e.source.ListOrders(ctx, filter, offset, limit)
		if err != nil {
			return 0, 0, err
		}
		// Line items load in one join keyed by order id, not per row.
		ids := make([]int64, len(rows))
		for i, o := range rows {
			ids[i] = o.ID
		}
		itemsByOrder, err := e.source.ListOrderItems(ctx, ids)
		if err != nil {
			return 0, 0, err
		}
		for _, o := range rows {
			processed++
			if e.syncOne(ctx, t, o.ID, maxAttempts, func(ctx context.Context) error {
				return e.syncer.SyncOrder(ctx, o, itemsByOrder[o.ID])
			}) {
				succeeded++
			}
		}

	default:
		return 0, 0, fmt.Errorf("%w: %q", storage.ErrUnsupportedEntityType, t)
	}

	return processed, succeeded, nil
}

// syncOne attempts one item's sync with bounded linear backoff. On
// failure it records the item in the ledger and reports false.
func (e *Engine) syncOne(ctx context.Context, t core.EntityType, id int64, maxAttempts int, fn func(ctx context.Context) error) bool {
	err := core.RetryWithBackoff(ctx, func() error { return fn(ctx) }, maxAttempts, retryBaseDelay)
	if err == nil {
		return true
	}

	e.logger.Error("sync failed", "entity_type", t, "entity_id", id, "err", err)
	if _, ledgerErr := e.ledger.UpsertFailure(ctx, t, id, err); ledgerErr != nil {
		e.logger.Error("failure record write failed", "entity_type", t, "entity_id", id, "err", ledgerErr)
	}
	return false
}

// ReprocessFailures retries entities from the dead-letter ledger. Records
// whose source row vanished become permanent failures; successful retries
// delete their record, failed ones refresh it.
func (e *Engine) ReprocessFailures(ctx context.Context, q storage.FailureQuery) (*core.ReprocessReport, error) {
	records, err := e.ledger.ListFailures(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &core.ReprocessReport{Total: len(records)}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fn, loadErr := e.loadSyncFn(ctx, rec.EntityType, rec.EntityID)
		if loadErr != nil {
			report.Failures++
			if _, ledgerErr := e.ledger.UpsertFailure(ctx, rec.EntityType, rec.EntityID, loadErr); ledgerErr != nil {
				e.logger.Error("failure record write failed", "entity_type", rec.EntityType, "entity_id", rec.EntityID, "err", ledgerErr)
			}
			continue
		}

		if e.syncOne(ctx, rec.EntityType, rec.EntityID, e.config.MaxItemAttempts, fn) {
			report.Success++
			if err := e.ledger.DeleteFailure(ctx, rec.EntityType, rec.EntityID); err != nil {
				e.logger.Error("failure record delete failed", "entity_type", rec.EntityType, "entity_id", rec.EntityID, "err", err)
			}
		} else {
			report.Failures++
		}
	}

	e.logger.Info("reprocess finished",
		"total", report.Total,
		"success", report.Success,
		"failures", report.Failures)

	return report, nil
}

// loadSyncFn reloads the current source row for one dead-letter record and
// returns the closure that re-syncs it. A missing row surfaces as
// core.ErrNotFound, which classifies permanent.
func (e *Engine) loadSyncFn(ctx context.Context, t core.EntityType, id int64) (func(ctx context.Context) error, error) {
	switch t {
	case core.EntityProduct:
		p, err := e.source.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return e.syncer.SyncProduct(ctx, p) }, nil

	case core.EntityCustomer:
		c, err := e.source.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return e.syncer.SyncCustomer(ctx, c) }, nil

	case core.EntityManager:
		m, err := e.source.GetManager(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return e.syncer.SyncManager(ctx, m) }, nil

	case core.EntityOrder:
		o, err := e.source.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		items, err := e.source.ListOrderItems(ctx, []int64{o.ID})
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return e.syncer.SyncOrder(ctx, o, items[o.ID]) }, nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedEntityType, t)
	}
}

func isBackfillable(t core.EntityType) bool {
	for _, b := range core.BackfillableTypes {
		if b == t {
			return true
		}
	}
	return false
}
