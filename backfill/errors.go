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

import "errors"

var (
	// ErrSourceRequired is returned when no source store is provided.
	ErrSourceRequired = errors.New("source store is required")

	// ErrSyncerRequired is returned when no synchronizer is provided.
	ErrSyncerRequired = errors.New("synchronizer is required")

	// ErrLedgerRequired is returned when no failure ledger is provided.
	ErrLedgerRequired = errors.New("failure ledger is required")

	// ErrEntityIDNeedsSingleType is returned when an entity id filter is
	// combined with anything but exactly one entity type.
	ErrEntityIDNeedsSingleType = errors.New("entity id filter requires exactly one entity type")

	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrInvalidThreshold is returned when the failure alert threshold is
	// outside [0, 1].
	ErrInvalidThreshold = errors.New("failure alert threshold must be in [0, 1]")
)
