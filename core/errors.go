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


package core

import "errors"

// Domain errors
var (
	// ErrEmptyQuery indicates a blank question or search query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQuestionTooLong indicates the question exceeds the maximum length.
	ErrQuestionTooLong = errors.New("question exceeds maximum length")

	// ErrUnsafeQuestion indicates the guardrail rejected the question.
	ErrUnsafeQuestion = errors.New("question rejected by safety guardrail")

	// ErrInvalidEntityType indicates an entity type outside the closed enum.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidDateRange indicates a malformed date filter.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrUnknownTool indicates an unrecognized tool name. Always fatal to the call.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrEmbeddingFailed indicates embedding generation failed after retry exhaustion.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// ErrorClass partitions failures for retry and dead-letter policy.
type ErrorClass int

const (
	// ClassTransient marks infrastructure failures worth retrying.
	ClassTransient ErrorClass = iota
	// ClassValidation marks caller-fault input errors. Never retried.
	ClassValidation
	// ClassPermanent marks item failures that will not fix themselves,
	// e.g. a source row that no longer exists.
	ClassPermanent
)

// Classify maps an error onto the retry taxonomy. Every retry loop and the
// failure ledger go through this single function so the policy stays in one
// place. Note: not-found is classified permanent, which conflates "missing"
// with "unfixable"; the backfill reprocessing path relies on that.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassTransient
	case errors.Is(err, ErrNotFound):
		return ClassPermanent
	case errors.Is(err, ErrEmptyQuery),
		errors.Is(err, ErrQuestionTooLong),
		errors.Is(err, ErrUnsafeQuestion),
		errors.Is(err, ErrInvalidEntityType),
		errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, ErrUnknownTool):
		return ClassValidation
	default:
		return ClassTransient
	}
}

// IsRetryable reports whether a failed attempt should be retried.
func IsRetryable(err error) bool {
	return Classify(err) == ClassTransient
}

// IsPermanent reports whether a failure should carry the sticky permanence
// flag in the dead-letter ledger.
func IsPermanent(err error) bool {
	return Classify(err) != ClassTransient
}
