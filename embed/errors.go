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


package embed

import "errors"

var (
	// ErrUnknownProvider indicates a provider value outside the known set.
	ErrUnknownProvider = errors.New("embed config: unknown provider")

	// ErrInvalidDimension indicates a non-positive vector dimension.
	ErrInvalidDimension = errors.New("embed config: dimension must be greater than 0")

	// ErrHostRequired indicates the HTTP provider is missing its host URL.
	ErrHostRequired = errors.New("embed config: host is required for the http provider")

	// ErrModelRequired indicates the HTTP provider is missing its model name.
	ErrModelRequired = errors.New("embed config: model is required for the http provider")

	// ErrInvalidTimeout indicates a non-positive HTTP timeout.
	ErrInvalidTimeout = errors.New("embed config: timeout must be greater than 0")

	// ErrInvalidMaxAttempts indicates a non-positive retry limit.
	ErrInvalidMaxAttempts = errors.New("embed config: max attempts must be greater than 0")

	// ErrEmptyBatch indicates EmbedTexts was called with no inputs.
	ErrEmptyBatch = errors.New("no texts to embed")
)
