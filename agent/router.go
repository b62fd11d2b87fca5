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

// Package agent routes natural-language questions to the right data tool
// and assembles the final answer. It holds the intent heuristics: ordered
// keyword tables, not a trained classifier. Precedence matters and must
// not be reordered.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

// ToolName identifies one of the router's closed set of tools.
type ToolName string

const (
	ToolSQLAnalytics   ToolName = "sql_analytics"
	ToolRAGOperational ToolName = "rag_operational"
	ToolRAGStrategic   ToolName = "rag_strategic"
	ToolHybrid         ToolName = "hybrid_search"
)

// AggregateKind names one exact-aggregate query shape.
type AggregateKind string

const (
	KindSalesTotals    AggregateKind = "sales_totals"
	KindTopProducts    AggregateKind = "top_products"
	KindStatusCounts   AggregateKind = "status_counts"
	KindCustomerCounts AggregateKind = "customer_counts"
	KindLowStock       AggregateKind = "low_stock"
	KindDailyRevenue   AggregateKind = "daily_revenue"
)

// aggregateCascade dispatches a question to one aggregate query. The
// order is significant: the first category with a matching term wins,
// and nothing matching falls through to sales totals.
var aggregateCascade = []struct {
	kind  AggregateKind
	terms []string
}{
	{KindSalesTotals, []string{"venda", "vendas", "receita", "faturamento", "revenue", "sales"}},
	{KindTopProducts, []string{"mais vendido", "mais vendidos", "ranking", "top produtos", "melhores produtos", "top product"}},
	{KindStatusCounts, []string{"status", "situação", "pendente", "pendentes", "cancelado", "cancelados"}},
	{KindCustomerCounts, []string{"quantos clientes", "clientes ativos", "total de clientes", "customer count"}},
	{KindLowStock, []string{"estoque", "stock", "reposição"}},
	{KindDailyRevenue, []string{"por dia", "diário", "diária", "daily", "dia a dia"}},
}

// topicVocabulary maps free-text strategic topics onto entity types.
// Unknown topics are dropped silently.
var topicVocabulary = map[string]core.EntityType{
	"produto":   core.EntityProduct,
	"produtos":  core.EntityProduct,
	"product":   core.EntityProduct,
	"products":  core.EntityProduct,
	"cliente":   core.EntityCustomer,
	"clientes":  core.EntityCustomer,
	"customer":  core.EntityCustomer,
	"customers": core.EntityCustomer,
	"pedido":    core.EntityOrder,
	"pedidos":   core.EntityOrder,
	"order":     core.EntityOrder,
	"orders":    core.EntityOrder,
	"gestor":    core.EntityManager,
	"gestores":  core.EntityManager,
	"manager":   core.EntityManager,
	"managers":  core.EntityManager,
}

// Searcher is the slice of the synchronizer the router needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, entityTypes []core.EntityType) ([]*core.SearchHit, error)
}

// AggregateInput asks for one exact metric. Dates, when set, must be
// YYYY-MM-DD and From must not exceed To.
type AggregateInput struct {
	Question string
	FromDate string
	ToDate   string
}

// SearchInput drives the operational semantic search.
type SearchInput struct {
	Query       string
	TopK        int
	EntityTypes []core.EntityType
}

// StrategicInput drives the strategic semantic search. Topics are mapped
// through the fixed vocabulary onto entity-type filters.
type StrategicInput struct {
	Query  string
	TopK   int
	Topics []string
}

// HybridInput drives the concurrent aggregate + semantic merge.
type HybridInput struct {
	Question string
	TopK     int
}

// ToolOutput is the closed set of tool results.
type ToolOutput interface {
	Tool() ToolName
	Latency() int64
}

// SQLAnalyticsOutput carries one aggregate result. Only the field matching
// Kind is populated; RowCount counts the rows behind it.
type SQLAnalyticsOutput struct {
	Kind        AggregateKind
	Totals      *core.SalesTotals
	TopProducts []*core.TopProduct
	Statuses    []*core.StatusCount
	Customers   *core.CustomerCounts
	LowStock    []*core.LowStockProduct
	Daily       []*core.DailyRevenue
	RowCount    int
	LatencyMs   int64
}

func (o *SQLAnalyticsOutput) Tool() ToolName { return ToolSQLAnalytics }
func (o *SQLAnalyticsOutput) Latency() int64 { return o.LatencyMs }

// RAGOutput carries ranked semantic hits for either semantic tool.
type RAGOutput struct {
	Name      ToolName
	Hits      []*core.SearchHit
	LatencyMs int64
}

func (o *RAGOutput) Tool() ToolName { return o.Name }
func (o *RAGOutput) Latency() int64 { return o.LatencyMs }

// ContextBlock is one merged unit of hybrid context.
type ContextBlock struct {
	Source     string  `json:"source"` // "sql" or "semantic"
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	EntityType core.EntityType `json:"entityType,omitempty"`
	EntityID   int64           `json:"entityId,omitempty"`
}

// HybridOutput is the fan-out/fan-in merge of the SQL and semantic tools.
// Blocks are sorted by confidence descending; the SQL block, when present,
// carries a fixed confidence of 1.0.
type HybridOutput struct {
	Blocks    []*ContextBlock
	SQL       *SQLAnalyticsOutput
	Hits      []*core.SearchHit
	LatencyMs int64
}

func (o *HybridOutput) Tool() ToolName { return ToolHybrid }
func (o *HybridOutput) Latency() int64 { return o.LatencyMs }

// Router dispatches tool invocations over a closed tool set.
type Router struct {
	analytics storage.Analytics
	searcher  Searcher
	logger    *slog.Logger
}

// NewRouter creates a Router over the analytics store and the searcher.
func NewRouter(analytics storage.Analytics, searcher Searcher) (*Router, error) {
	if analytics == nil {
		return nil, ErrAnalyticsRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	return &Router{
		analytics: analytics,
		searcher:  searcher,
		logger:    slog.Default().With("component", "tool_router"),
	}, nil
}

// Invoke runs one named tool. The dispatch is exhaustive over the closed
// tool set; an unrecognized name fails with core.ErrUnknownTool, never a
// silent no-op.
func (r *Router) Invoke(ctx context.Context, corr core.CorrelationContext, tool ToolName, input any) (ToolOutput, error) {
	logger := r.logger.With("correlation_id", corr.CorrelationID, "tool", tool)

	var (
		out ToolOutput
		err error
	)
	switch tool {
	case ToolSQLAnalytics:
		in, ok := input.(AggregateInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects AggregateInput", ErrInvalidToolInput, tool)
		}
		out, err = r.runAggregate(ctx, in)
	case ToolRAGOperational:
		in, ok := input.(SearchInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects SearchInput", ErrInvalidToolInput, tool)
		}
		out, err = r.runOperational(ctx, in)
	case ToolRAGStrategic:
		in, ok := input.(StrategicInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects StrategicInput", ErrInvalidToolInput, tool)
		}
		out, err = r.runStrategic(ctx, in)
	case ToolHybrid:
		in, ok := input.(HybridInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects HybridInput", ErrInvalidToolInput, tool)
		}
		out, err = r.runHybrid(ctx, in)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownTool, tool)
	}

	if err != nil {
		logger.Error("tool failed", "err", err)
		return nil, err
	}
	logger.Info("tool completed", "latency_ms", out.Latency())
	return out, nil
}

// classifyAggregate walks the ordered cascade and returns the first
// matching kind, defaulting to sales totals.
func classifyAggregate(question string) AggregateKind {
	lowered := strings.ToLower(question)
	for _, entry := range aggregateCascade {
		for _, term := range entry.terms {
			if strings.Contains(lowered, term) {
				return entry.kind
			}
		}
	}
	return KindSalesTotals
}

func parseDateRange(fromDate, toDate string) (from, to *time.Time, err error) {
	if fromDate != "" {
		t, perr := core.ParseDate(fromDate)
		if perr != nil {
			return nil, nil, perr
		}
		from = &t
	}
	if toDate != "" {
		t, perr := core.ParseDate(toDate)
		if perr != nil {
			return nil, nil, perr
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, core.ErrInvalidDateRange
	}
	return from, to, nil
}

func (r *Router) runAggregate(ctx context.Context, in AggregateInput) (*SQLAnalyticsOutput, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, core.ErrEmptyQuery
	}
	from, to, err := parseDateRange(in.FromDate, in.ToDate)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	out := &SQLAnalyticsOutput{Kind: classifyAggregate(in.Question)}

	switch out.Kind {
	case KindSalesTotals:
		out.Totals, err = r.analytics.SalesTotals(ctx, from, to)
		if out.Totals != nil && out.Totals.OrderCount > 0 {
			out.RowCount = 1
		}
	case KindTopProducts:
		out.TopProducts, err = r.analytics.TopProducts(ctx, from, to, 5)
		out.RowCount = len(out.TopProducts)
	case KindStatusCounts:
		out.Statuses, err = r.analytics.StatusCounts(ctx, from, to)
		out.RowCount = len(out.Statuses)
	case KindCustomerCounts:
		out.Customers, err = r.analytics.CustomerCounts(ctx)
		if out.Customers != nil && out.Customers.Total > 0 {
			out.RowCount = 1
		}
	case KindLowStock:
		out.LowStock, err = r.analytics.LowStock(ctx, 10)
		out.RowCount = len(out.LowStock)
	case KindDailyRevenue:
		out.Daily, err = r.analytics.DailyRevenue(ctx, from, to)
		out.RowCount = len(out.Daily)
	}
	if err != nil {
		return nil, err
	}

	out.LatencyMs = time.Since(started).Milliseconds()
	return out, nil
}

func (r *Router) runOperational(ctx context.Context, in SearchInput) (*RAGOutput, error) {
	started := time.Now()
	hits, err := r.searcher.Search(ctx, in.Query, in.TopK, in.EntityTypes)
	if err != nil {
		return nil, err
	}
	return &RAGOutput{
		Name:      ToolRAGOperational,
		Hits:      hits,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

func (r *Router) runStrategic(ctx context.Context, in StrategicInput) (*RAGOutput, error) {
	var types []core.EntityType
	for _, topic := range in.Topics {
		if t, ok := topicVocabulary[strings.ToLower(strings.TrimSpace(topic))]; ok {
			types = append(types, t)
		}
	}

	started := time.Now()
	hits, err := r.searcher.Search(ctx, in.Query, in.TopK, types)
	if err != nil {
		return nil, err
	}
	return &RAGOutput{
		Name:      ToolRAGStrategic,
		Hits:      hits,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

// runHybrid fans out the aggregate query and the operational search,
// waits for both, then merges their results into confidence-ranked
// blocks. No partial merge: either branch failing fails the call.
func (r *Router) runHybrid(ctx context.Context, in HybridInput) (*HybridOutput, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, core.ErrEmptyQuery
	}

	started := time.Now()

	var (
		sqlOut *SQLAnalyticsOutput
		ragOut *RAGOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sqlOut, err = r.runAggregate(gctx, AggregateInput{Question: in.Question})
		return err
	})
	g.Go(func() error {
		var err error
		ragOut, err = r.runOperational(gctx, SearchInput{Query: in.Question, TopK: in.TopK})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &HybridOutput{SQL: sqlOut, Hits: ragOut.Hits}
	if sqlOut.RowCount > 0 {
		out.Blocks = append(out.Blocks, &ContextBlock{
			Source:     "sql",
			Content:    formatAggregate(sqlOut),
			Confidence: 1.0,
		})
	}
	for _, hit := range ragOut.Hits {
		out.Blocks = append(out.Blocks, &ContextBlock{
			Source:     "semantic",
			Content:    hit.Snippet,
			Confidence: hit.Score,
			EntityType: hit.EntityType,
			EntityID:   hit.EntityID,
		})
	}
	sortBlocksByConfidence(out.Blocks)

	out.LatencyMs = time.Since(started).Milliseconds()
	return out, nil
}
