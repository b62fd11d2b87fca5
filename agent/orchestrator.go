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
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vitrineai/semdex/core"
)

// Route names the answer path chosen for a question.
type Route string

const (
	RouteSQL         Route = "SQL_ANALYTICS"
	RouteOperational Route = "RAG_OPERATIONAL"
	RouteStrategic   Route = "RAG_STRATEGIC"
	RouteHybrid      Route = "HYBRID"
)

// guardrailPatterns are matched against the lowercased question. A match
// is terminal: the question is rejected, never retried.
var guardrailPatterns = []string{
	// SQL-injection shapes.
	"drop table",
	"delete from",
	"truncate table",
	"; --",
	"union select",
	"' or '1'='1",
	// Prompt-injection phrasing.
	"ignore previous instructions",
	"ignore all previous instructions",
	"forget your instructions",
	"you are now",
	"ignore as instruções",
	"esqueça suas instruções",
}

// Intent keyword tables. classifyRoute is a pure function of these and
// the lowercased question; precedence is fixed and must be preserved:
// aggregate AND (strategic OR operational) is HYBRID, aggregate alone is
// SQL, then strategic, then operational, defaulting to operational.
var (
	aggregateIntentTerms = []string{
		"quantas", "quantos", "total", "soma", "média", "faturamento",
		"receita", "vendas", "estoque", "status", "contagem", "percentual",
	}
	strategicIntentTerms = []string{
		"estratégia", "estrategia", "tendência", "tendencia", "análise",
		"analise", "insight", "oportunidade", "crescimento", "planejamento",
		"longo prazo",
	}
	operationalIntentTerms = []string{
		"descreva", "describe", "detalhe", "detalhes", "mostre", "produto",
		"produtos", "cliente", "clientes", "pedido", "pedidos", "gestor",
		"gestores", "informações", "informacoes",
	}
)

// Source is one citation attached to an answer.
type Source struct {
	Type  string   `json:"type"`
	ID    int64    `json:"id,omitempty"`
	Title string   `json:"title"`
	Score *float64 `json:"score,omitempty"`
}

// Response is the orchestrator's answer envelope.
type Response struct {
	Message    string     `json:"message"`
	Answer     string     `json:"answer"`
	Route      Route      `json:"route"`
	ToolsUsed  []ToolName `json:"toolsUsed"`
	Sources    []Source   `json:"sources"`
	Advisories []string   `json:"advisories,omitempty"`
	ElapsedMs  int64      `json:"elapsedMs"`
}

// Orchestrator validates, guards, routes and formats natural-language
// questions end to end.
type Orchestrator struct {
	router *Router
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given router.
func NewOrchestrator(router *Router) (*Orchestrator, error) {
	if router == nil {
		return nil, ErrRouterRequired
	}
	return &Orchestrator{
		router: router,
		logger: slog.Default().With("component", "orchestrator"),
	}, nil
}

func matchesAny(lowered string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// checkGuardrails rejects questions matching unsafe patterns.
func checkGuardrails(question string) error {
	lowered := strings.ToLower(question)
	for _, pattern := range guardrailPatterns {
		if strings.Contains(lowered, pattern) {
			return core.ErrUnsafeQuestion
		}
	}
	return nil
}

// classifyRoute picks the route for a question. Pure: same text, same
// route, always.
func classifyRoute(question string) Route {
	lowered := strings.ToLower(question)

	aggregate := matchesAny(lowered, aggregateIntentTerms)
	strategic := matchesAny(lowered, strategicIntentTerms)
	operational := matchesAny(lowered, operationalIntentTerms)

	switch {
	case aggregate && (strategic || operational):
		return RouteHybrid
	case aggregate:
		return RouteSQL
	case strategic:
		return RouteStrategic
	case operational:
		return RouteOperational
	default:
		return RouteOperational
	}
}

// Ask answers one natural-language question. Validation and guardrail
// rejections return an error; tool failures do too. A successful call
// always carries the formatted answer, the chosen route, the tools used,
// citations and any advisories.
func (o *Orchestrator) Ask(ctx context.Context, question string, corr core.CorrelationContext) (*Response, error) {
	started := time.Now()
	logger := o.logger.With("correlation_id", corr.CorrelationID)

	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if err := checkGuardrails(question); err != nil {
		logger.Warn("question rejected by guardrail")
		return nil, err
	}

	route := classifyRoute(question)

	var (
		out ToolOutput
		err error
	)
	switch route {
	case RouteSQL:
		out, err = o.router.Invoke(ctx, corr, ToolSQLAnalytics, AggregateInput{Question: question})
	case RouteStrategic:
		out, err = o.router.Invoke(ctx, corr, ToolRAGStrategic, StrategicInput{Query: question})
	case RouteHybrid:
		out, err = o.router.Invoke(ctx, corr, ToolHybrid, HybridInput{Question: question})
	default:
		out, err = o.router.Invoke(ctx, corr, ToolRAGOperational, SearchInput{Query: question})
	}
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Message:   "Consulta processada com sucesso.",
		Route:     route,
		ToolsUsed: []ToolName{out.Tool()},
		Sources:   sourcesFromOutput(out),
	}

	switch v := out.(type) {
	case *SQLAnalyticsOutput:
		resp.Answer = formatAggregate(v)
	case *RAGOutput:
		resp.Answer = formatHits(v.Hits)
	case *HybridOutput:
		resp.Answer = formatHybrid(v)
		resp.ToolsUsed = []ToolName{ToolHybrid, ToolSQLAnalytics, ToolRAGOperational}
	}

	lowered := strings.ToLower(question)
	if matchesAny(lowered, aggregateIntentTerms) && route != RouteSQL && route != RouteHybrid {
		resp.Advisories = append(resp.Advisories,
			"A pergunta parece pedir métricas exatas, mas foi respondida por busca semântica; os números podem não ser precisos.")
	}
	if len(resp.Sources) == 0 {
		resp.Advisories = append(resp.Advisories,
			"Nenhuma fonte de dados foi localizada para esta pergunta.")
	}

	resp.ElapsedMs = time.Since(started).Milliseconds()
	logger.Info("question answered",
		"route", route,
		"sources", len(resp.Sources),
		"elapsed_ms", resp.ElapsedMs)

	return resp, nil
}
