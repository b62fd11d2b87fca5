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


// Package embed turns text into fixed-dimension vectors for semantic search.
//
// Two providers are available, selected once at startup from configuration:
//
//   - deterministic: a reproducible hashing transform. Given identical input
//     and dimension it always produces the same unit-length vector. No model,
//     no network, no nondeterminism.
//   - http: an OpenAI-compatible embedding endpoint under a hard timeout.
//
// Both are wrapped by a bounded retry helper with linear backoff; the last
// attempt's failure propagates as a terminal indexing error.
//
// The embed/mock sub-package provides a test double with injectable behavior.
package embed
