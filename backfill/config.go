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

package backfill

import (
	"time"

	"github.com/vitrineai/semdex/core"
)

// retryBaseDelay is the base for the per-item linear backoff:
// attempt n sleeps n times this value.
const retryBaseDelay = 125 * time.Millisecond

// Config holds engine defaults. Per-run requests may override the
// overridable fields; zero values fall back to these.
type Config struct {
	// BatchSize is the number of rows loaded per page.
	BatchSize int

	// MaxItemAttempts bounds the retries for one item's sync.
	MaxItemAttempts int

	// FailureAlertThreshold is the failures/total ratio at or above which
	// a run emits a structured alert. The run itself still succeeds.
	FailureAlertThreshold float64

	// ReportInterval is how often the progress tracker reports, in items.
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:             100,
		MaxItemAttempts:       3,
		FailureAlertThreshold: 0.1,
		ReportInterval:        100,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxItemAttempts < 1 {
		return core.ErrInvalidMaxAttempts
	}
	if c.FailureAlertThreshold < 0 || c.FailureAlertThreshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}

// Request describes one backfill run.
type Request struct {
	// EntityTypes selects which types to backfill. Empty means all
	// backfillable types.
	EntityTypes []core.EntityType

	// From and To bound the source rows by their reference date.
	From *time.Time
	To   *time.Time

	// EntityID restricts the run to a single row. When set, EntityTypes
	// must select exactly one type.
	EntityID *int64

	// DryRun counts matching rows without syncing anything.
	DryRun bool

	// BatchSize and MaxItemAttempts override the engine defaults when
	// positive.
	BatchSize       int
	MaxItemAttempts int

	// FailureAlertThreshold overrides the engine default when positive.
	FailureAlertThreshold float64
}
