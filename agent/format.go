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

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vitrineai/semdex/core"
)

// User-facing text is pt-BR, matching the storefront.

func formatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}

// formatAggregate renders one aggregate result as bulleted rows.
func formatAggregate(out *SQLAnalyticsOutput) string {
	var b strings.Builder

	switch out.Kind {
	case KindSalesTotals:
		t := out.Totals
		b.WriteString("Resumo de vendas:\n")
		fmt.Fprintf(&b, "- Pedidos: %d\n", t.OrderCount)
		fmt.Fprintf(&b, "- Receita: %s\n", formatBRL(t.RevenueCents))
		fmt.Fprintf(&b, "- Ticket médio: %s\n", formatBRL(t.AvgOrderCents))

	case KindTopProducts:
		b.WriteString("Produtos mais vendidos:\n")
		for i, p := range out.TopProducts {
			fmt.Fprintf(&b, "- %dº %s: %d unidades (%s)\n", i+1, p.Name, p.QuantitySold, formatBRL(p.RevenueCents))
		}

	case KindStatusCounts:
		b.WriteString("Pedidos por status:\n")
		for _, s := range out.Statuses {
			fmt.Fprintf(&b, "- %s: %d\n", s.Status, s.Count)
		}

	case KindCustomerCounts:
		c := out.Customers
		b.WriteString("Clientes:\n")
		fmt.Fprintf(&b, "- Total: %d\n", c.Total)
		fmt.Fprintf(&b, "- Ativos: %d\n", c.Active)

	case KindLowStock:
		b.WriteString("Produtos com estoque baixo:\n")
		for _, p := range out.LowStock {
			fmt.Fprintf(&b, "- %s: %d unidades\n", p.Name, p.Stock)
		}

	case KindDailyRevenue:
		b.WriteString("Receita por dia:\n")
		for _, d := range out.Daily {
			fmt.Fprintf(&b, "- %s: %d pedidos, %s\n", d.Day, d.OrderCount, formatBRL(d.RevenueCents))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatHits renders semantic hits ranked with percentage relevance.
func formatHits(hits []*core.SearchHit) string {
	if len(hits) == 0 {
		return "Nenhum resultado encontrado."
	}
	var b strings.Builder
	b.WriteString("Resultados encontrados:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. [%s #%d] (%.1f%% relevância) %s\n",
			i+1, h.EntityType, h.EntityID, h.Score*100, h.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatHybrid renders merged blocks, each tagged with its source.
func formatHybrid(out *HybridOutput) string {
	if len(out.Blocks) == 0 {
		return "Nenhum resultado encontrado."
	}
	var b strings.Builder
	for _, block := range out.Blocks {
		tag := "Busca semântica"
		if block.Source == "sql" {
			tag = "Dados exatos"
		}
		fmt.Fprintf(&b, "[%s | confiança %.2f]\n%s\n\n", tag, block.Confidence, block.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortBlocksByConfidence(blocks []*ContextBlock) {
	slices.SortStableFunc(blocks, func(a, b *ContextBlock) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
}

// sourcesFromOutput extracts citations from whichever tool ran.
func sourcesFromOutput(out ToolOutput) []Source {
	var sources []Source
	switch o := out.(type) {
	case *SQLAnalyticsOutput:
		if o.RowCount > 0 {
			sources = append(sources, Source{Type: "sql", Title: string(o.Kind)})
		}
	case *RAGOutput:
		for _, h := range o.Hits {
			score := h.Score
			sources = append(sources, Source{
				Type:  string(h.EntityType),
				ID:    h.EntityID,
				Title: titleFromSnippet(h.Snippet),
				Score: &score,
			})
		}
	case *HybridOutput:
		if o.SQL != nil && o.SQL.RowCount > 0 {
			sources = append(sources, Source{Type: "sql", Title: string(o.SQL.Kind)})
		}
		for _, h := range o.Hits {
			score := h.Score
			sources = append(sources, Source{
				Type:  string(h.EntityType),
				ID:    h.EntityID,
				Title: titleFromSnippet(h.Snippet),
				Score: &score,
			})
		}
	}
	return sources
}

// titleFromSnippet keeps a short prefix of the snippet as the citation title.
func titleFromSnippet(snippet string) string {
	const maxTitle = 60
	if len(snippet) <= maxTitle {
		return snippet
	}
	cut := maxTitle
	for cut > 0 && snippet[cut]&0xC0 == 0x80 {
		cut--
	}
	return snippet[:cut] + "…"
}
