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

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxQuestionLength is the upper bound on a natural-language question.
	MaxQuestionLength = 2000

	// MinTopK and MaxTopK bound semantic search result counts.
	MinTopK = 1
	MaxTopK = 20

	// DefaultTopK is used when the caller does not specify a result count.
	DefaultTopK = 5
)

// ValidEntityType reports whether t belongs to the closed enum.
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityProduct, EntityCustomer, EntityManager, EntityOrder, EntityOrderItem:
		return true
	}
	return false
}

// ParseEntityType validates a raw string against the closed enum.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !ValidEntityType(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
	return t, nil
}

// FilterEntityTypes keeps only values from the closed enum, dropping unknown
// entries silently. Returns nil when nothing survives.
func FilterEntityTypes(types []EntityType) []EntityType {
	var out []EntityType
	for _, t := range types {
		if ValidEntityType(t) {
			out = append(out, t)
		}
	}
	return out
}

// ClampTopK normalizes a requested result count into [MinTopK, MaxTopK],
// substituting DefaultTopK for zero or negative values.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK < MinTopK {
		return MinTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// ValidateQuestion checks a free-text question: non-empty after trimming and
// within MaxQuestionLength.
func ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if len(trimmed) > MaxQuestionLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrQuestionTooLong, len(trimmed), MaxQuestionLength)
	}
	return nil
}

// ParseDate validates a YYYY-MM-DD date filter.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, s)
	}
	return t, nil
}
