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


// Package storage defines the persistence contracts of the indexing pipeline.
//
// Three collaborators are abstracted here:
//
//   - DocumentIndex: stores and searches canonical documents keyed by
//     (entity type, entity id), ranked by cosine similarity.
//   - SourceStore / Analytics: read-only access to the storefront's relational
//     rows and aggregate queries.
//   - FailureLedger: the dead-letter store for entities that failed indexing.
//
// storage/sqlite implements the first two over one SQLite database so index
// writes can join business transactions; storage/badger implements the ledger.
package storage
