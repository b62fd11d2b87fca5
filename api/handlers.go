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

// Package api exposes the query and admin surface over HTTP. Responses
// are JSON with pt-BR user-facing messages; internal error details are
// logged, never returned to callers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vitrineai/semdex/agent"
	"github.com/vitrineai/semdex/backfill"
	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
	"github.com/vitrineai/semdex/syncer"
)

const maxBodySize = 1 << 20 // 1MB

// AppDeps wires the handlers to the pipeline.
type AppDeps struct {
	Orchestrator *agent.Orchestrator
	Syncer       *syncer.Synchronizer
	Engine       *backfill.Engine
	Ledger       storage.FailureLedger
	Token        string
	Logger       *slog.Logger
}

// NewAppHandler builds the HTTP routing tree. Everything but /health
// sits behind bearer auth.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default().With("component", "api")
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/ask", handleAsk(deps))
		r.Post("/search", handleSearch(deps))
		r.Post("/admin/backfill", handleBackfill(deps))
		r.Post("/admin/reprocess", handleReprocess(deps))
		r.Get("/admin/failures", handleListFailures(deps))
	})

	return r
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps pipeline errors to localized HTTP responses.
// Validation-shaped failures surface with their cause; anything else is
// logged and answered with a generic message.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyQuery):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "A pergunta não pode estar vazia.")
	case errors.Is(err, core.ErrQuestionTooLong):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "A pergunta excede o limite de 2000 caracteres.")
	case errors.Is(err, core.ErrUnsafeQuestion):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "A pergunta contém padrões não permitidos.")
	case errors.Is(err, core.ErrInvalidDateRange):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "Datas devem usar o formato AAAA-MM-DD e o início não pode ser posterior ao fim.")
	case errors.Is(err, core.ErrInvalidEntityType), errors.Is(err, storage.ErrUnsupportedEntityType):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "Tipo de entidade desconhecido.")
	case errors.Is(err, backfill.ErrEntityIDNeedsSingleType):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "O filtro por id exige exatamente um tipo de entidade.")
	case errors.Is(err, core.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "Registro não encontrado.")
	default:
		logger.Error("request failed", "err", err)
		httpError(w, http.StatusInternalServerError, "internal_error", "Erro interno ao processar a solicitação.")
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// AskRequest is the /ask payload.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
}

func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Corpo da requisição inválido.")
			return
		}

		corr := core.NewCorrelation(req.UserID, req.Role)
		resp, err := deps.Orchestrator.Ask(r.Context(), req.Question, corr)
		if err != nil {
			writeDomainError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SearchRequest is the /search payload.
type SearchRequest struct {
	Query       string            `json:"query"`
	TopK        int               `json:"topK"`
	EntityTypes []core.EntityType `json:"entityTypes"`
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Corpo da requisição inválido.")
			return
		}

		hits, err := deps.Syncer.Search(r.Context(), req.Query, req.TopK, req.EntityTypes)
		if err != nil {
			writeDomainError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Busca concluída.",
			"hits":    hits,
		})
	}
}

// BackfillRequest is the /admin/backfill payload. Dates are YYYY-MM-DD.
type BackfillRequest struct {
	EntityTypes           []core.EntityType `json:"entityTypes"`
	FromDate              string            `json:"fromDate"`
	ToDate                string            `json:"toDate"`
	EntityID              *int64            `json:"entityId"`
	DryRun                bool              `json:"dryRun"`
	BatchSize             int               `json:"batchSize"`
	MaxItemAttempts       int               `json:"maxItemAttempts"`
	FailureAlertThreshold float64           `json:"failureAlertThreshold"`
}

func handleBackfill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req BackfillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Corpo da requisição inválido.")
			return
		}

		run := backfill.Request{
			EntityTypes:           req.EntityTypes,
			EntityID:              req.EntityID,
			DryRun:                req.DryRun,
			BatchSize:             req.BatchSize,
			MaxItemAttempts:       req.MaxItemAttempts,
			FailureAlertThreshold: req.FailureAlertThreshold,
		}
		if req.FromDate != "" {
			t, err := core.ParseDate(req.FromDate)
			if err != nil {
				writeDomainError(w, deps.Logger, err)
				return
			}
			run.From = &t
		}
		if req.ToDate != "" {
			t, err := core.ParseDate(req.ToDate)
			if err != nil {
				writeDomainError(w, deps.Logger, err)
				return
			}
			run.To = &t
		}

		report, err := deps.Engine.Run(r.Context(), run)
		if err != nil {
			writeDomainError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Backfill concluído.",
			"report":  report,
		})
	}
}

// ReprocessRequest is the /admin/reprocess payload.
type ReprocessRequest struct {
	EntityType       core.EntityType `json:"entityType"`
	IncludePermanent bool            `json:"includePermanent"`
	Limit            int             `json:"limit"`
}

func handleReprocess(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req ReprocessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Corpo da requisição inválido.")
			return
		}

		report, err := deps.Engine.ReprocessFailures(r.Context(), storage.FailureQuery{
			EntityType:       req.EntityType,
			IncludePermanent: req.IncludePermanent,
			Limit:            req.Limit,
		})
		if err != nil {
			writeDomainError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Reprocessamento concluído.",
			"report":  report,
		})
	}
}

type failureItem struct {
	EntityType    core.EntityType `json:"entityType"`
	EntityID      int64           `json:"entityId"`
	FailureCount  int             `json:"failureCount"`
	LastError     string          `json:"lastError"`
	IsPermanent   bool            `json:"isPermanent"`
	LastAttemptAt string          `json:"lastAttemptAt"`
}

func handleListFailures(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := storage.FailureQuery{
			EntityType:       core.EntityType(r.URL.Query().Get("entityType")),
			IncludePermanent: r.URL.Query().Get("includePermanent") == "true",
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "O parâmetro limit deve ser um número inteiro.")
				return
			}
			q.Limit = limit
		}

		records, err := deps.Ledger.ListFailures(r.Context(), q)
		if err != nil {
			writeDomainError(w, deps.Logger, err)
			return
		}

		items := make([]failureItem, 0, len(records))
		for _, rec := range records {
			items = append(items, failureItem{
				EntityType:    rec.EntityType,
				EntityID:      rec.EntityID,
				FailureCount:  rec.FailureCount,
				LastError:     rec.LastError,
				IsPermanent:   rec.IsPermanent,
				LastAttemptAt: rec.LastAttemptAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Falhas listadas.",
			"failures": items,
		})
	}
}
