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

package syncer

import (
	"context"
	"math"
	"strings"

	"github.com/vitrineai/semdex/core"
)

const maxSnippetLength = 240

// Search embeds the query and ranks documents by cosine similarity.
// topK is clamped to [1,20] with 0 meaning the default of 5. Unknown
// entity types in the filter are dropped silently; an empty result after
// filtering means no type restriction.
func (s *Synchronizer) Search(ctx context.Context, query string, topK int, entityTypes []core.EntityType) ([]*core.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}

	topK = core.ClampTopK(topK)
	types := core.FilterEntityTypes(entityTypes)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := s.index.SearchSimilar(ctx, vector, topK, types)
	if err != nil {
		return nil, err
	}

	hits := make([]*core.SearchHit, 0, len(scored))
	for _, sd := range scored {
		hits = append(hits, &core.SearchHit{
			EntityType: sd.Document.EntityType,
			EntityID:   sd.Document.EntityID,
			Score:      roundScore(sd.Score),
			Snippet:    makeSnippet(sd.Document.ContentMarkdown),
			Metadata:   sd.Document.Metadata,
		})
	}
	return hits, nil
}

// roundScore rounds a similarity score to 6 decimal places.
func roundScore(score float64) float64 {
	return math.Round(score*1e6) / 1e6
}

// makeSnippet flattens newlines to spaces and truncates to 240 characters.
func makeSnippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) <= maxSnippetLength {
		return flat
	}
	// Cut on a rune boundary so multi-byte text stays valid.
	cut := maxSnippetLength
	for cut > 0 && !isRuneStart(flat[cut]) {
		cut--
	}
	return flat[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
