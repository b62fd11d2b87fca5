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

// Package badger implements the failure ledger on BadgerDB. Dead-letter
// records are small, written on every indexing failure and deleted on
// recovery, which suits an embedded key-value store better than the
// relational backend.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

const failureKeyPrefix = "fail:"

// Ledger is the BadgerDB-backed storage.FailureLedger implementation.
type Ledger struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.FailureLedger = (*Ledger)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenLedger opens the ledger at filePath, creating the directory if
// needed. Pass inMemory for tests and ephemeral runs.
func OpenLedger(filePath string, inMemory bool) (*Ledger, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "failure_ledger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func failureKey(entityType core.EntityType, entityID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d", failureKeyPrefix, entityType, entityID))
}

// UpsertFailure records a failed indexing attempt. The counter increments,
// the last error is overwritten, the timestamp refreshes, and permanence
// is sticky: once a cause classifies as permanent the flag never clears.
func (l *Ledger) UpsertFailure(ctx context.Context, entityType core.EntityType, entityID int64, cause error) (*core.FailureRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := failureKey(entityType, entityID)
	record := &core.FailureRecord{
		EntityType: entityType,
		EntityID:   entityID,
	}

	err := l.db.Update(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, record)
			}); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// First failure for this key.
		default:
			return err
		}

		record.FailureCount++
		record.LastError = cause.Error()
		record.IsPermanent = record.IsPermanent || core.IsPermanent(cause)
		record.LastAttemptAt = time.Now().UTC()

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		return tx.Set(key, data)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("failure recorded",
		"entity_type", entityType,
		"entity_id", entityID,
		"failure_count", record.FailureCount,
		"permanent", record.IsPermanent)

	return record, nil
}

// DeleteFailure removes the record after a successful sync. Missing
// records are not an error.
func (l *Ledger) DeleteFailure(ctx context.Context, entityType core.EntityType, entityID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.db.Update(func(tx *badger.Txn) error {
		err := tx.Delete(failureKey(entityType, entityID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// GetFailure retrieves one record, or core.ErrNotFound.
func (l *Ledger) GetFailure(ctx context.Context, entityType core.EntityType, entityID int64) (*core.FailureRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := &core.FailureRecord{}
	err := l.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(failureKey(entityType, entityID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: failure %s/%d", core.ErrNotFound, entityType, entityID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, record)
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListFailures returns records most recent first, honoring the query's
// type filter, permanence filter and clamped limit.
func (l *Ledger) ListFailures(ctx context.Context, q storage.FailureQuery) ([]*core.FailureRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = storage.DefaultFailureLimit
	}
	if limit > storage.MaxFailureLimit {
		limit = storage.MaxFailureLimit
	}

	prefix := []byte(failureKeyPrefix)
	if q.EntityType != "" {
		if !core.ValidEntityType(q.EntityType) {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidEntityType, q.EntityType)
		}
		prefix = []byte(failureKeyPrefix + string(q.EntityType) + ":")
	}

	var records []*core.FailureRecord
	err := l.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			record := &core.FailureRecord{}
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, record)
			}); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if record.IsPermanent && !q.IncludePermanent {
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *core.FailureRecord) int {
		return b.LastAttemptAt.Compare(a.LastAttemptAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
