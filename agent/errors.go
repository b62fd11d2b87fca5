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

package agent

import "errors"

var (
	// ErrAnalyticsRequired is returned when no analytics store is provided.
	ErrAnalyticsRequired = errors.New("analytics store is required")

	// ErrSearcherRequired is returned when no semantic searcher is provided.
	ErrSearcherRequired = errors.New("semantic searcher is required")

	// ErrRouterRequired is returned when no tool router is provided.
	ErrRouterRequired = errors.New("tool router is required")

	// ErrInvalidToolInput is returned when a tool receives an input value
	// of the wrong shape.
	ErrInvalidToolInput = errors.New("invalid tool input")
)
