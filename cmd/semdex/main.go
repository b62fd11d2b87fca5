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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vitrineai/semdex/agent"
	"github.com/vitrineai/semdex/api"
	"github.com/vitrineai/semdex/backfill"
	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/embed"
	"github.com/vitrineai/semdex/storage"
	badgerstore "github.com/vitrineai/semdex/storage/badger"
	"github.com/vitrineai/semdex/storage/sqlite"
	"github.com/vitrineai/semdex/syncer"
)

func main() {
	app := &cli.App{
		Name:  "semdex",
		Usage: "Semantic index and query routing for the storefront",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP query and admin surface",
				Action: serveCommand,
				Flags: append(stackFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Bearer token for the API",
						Required: true,
						EnvVars:  []string{"SEMDEX_TOKEN"},
					},
				),
			},
			{
				Name:   "backfill",
				Usage:  "Reindex source rows, or reprocess recorded failures",
				Action: backfillCommand,
				Flags: append(stackFlags(),
					&cli.StringSliceFlag{
						Name:  "entity-types",
						Usage: "Entity types to backfill (product, customer, manager, order); empty means all",
					},
					&cli.Int64Flag{
						Name:  "entity-id",
						Usage: "Restrict to a single entity id (requires exactly one entity type)",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Start date filter (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "End date filter (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of rows to load per page",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Maximum sync attempts per item",
						Value: 3,
					},
					&cli.Float64Flag{
						Name:  "failure-threshold",
						Usage: "Failures/total ratio that triggers an alert",
						Value: 0.1,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Count matching rows without syncing",
					},
					&cli.BoolFlag{
						Name:  "reprocess-failures",
						Usage: "Retry recorded failures instead of walking source tables",
					},
					&cli.BoolFlag{
						Name:  "include-permanent",
						Usage: "Also reprocess failures flagged permanent",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum failure records to reprocess",
						Value: 200,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a natural-language question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     stackFlags(),
			},
			{
				Name:      "search",
				Usage:     "Run a direct semantic search",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(stackFlags(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results (1-20)",
						Value: 5,
					},
					&cli.StringSliceFlag{
						Name:  "entity-types",
						Usage: "Restrict results to these entity types",
					},
				),
			},
			{
				Name:   "seed",
				Usage:  "Load demo rows into the relational store",
				Action: seedCommand,
				Flags:  stackFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func stackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory for the relational store and document index",
			Value:   "./data",
		},
		&cli.StringFlag{
			Name:  "ledger-dir",
			Usage: "Directory for the failure ledger",
			Value: "./data/ledger",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Embedding provider (deterministic, http)",
			Value: "deterministic",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding dimension for the deterministic provider",
			Value: 256,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.DurationFlag{
			Name:  "embedding-timeout",
			Usage: "Hard timeout for one embedding request",
			Value: 10 * time.Second,
		},
	}
}

// stack bundles the wired pipeline for one command invocation.
type stack struct {
	store  *sqlite.Store
	ledger *badgerstore.Ledger
	syncer *syncer.Synchronizer
	engine *backfill.Engine
	orch   *agent.Orchestrator
}

func (s *stack) Close() {
	if s.syncer != nil {
		s.syncer.Release()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func buildStack(c *cli.Context) (*stack, error) {
	store, err := sqlite.Open(c.String("data-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	st := &stack{store: store}

	st.ledger, err = badgerstore.OpenLedger(c.String("ledger-dir"), false)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open failure ledger: %w", err)
	}

	embedConfig := embed.NewConfig(
		embed.WithProvider(embed.Provider(c.String("provider"))),
		embed.WithDimension(c.Int("dimension")),
		embed.WithHost(c.String("embedding-host")),
		embed.WithModel(c.String("embedding-model")),
		embed.WithTimeout(c.Duration("embedding-timeout")),
	)
	embedder, err := embed.NewEmbedder(embedConfig)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st.syncer, err = syncer.New(embedder, store)
	if err != nil {
		st.Close()
		return nil, err
	}

	st.engine, err = backfill.NewEngine(store, st.syncer, st.ledger, nil, os.Stderr)
	if err != nil {
		st.Close()
		return nil, err
	}

	router, err := agent.NewRouter(store, st.syncer)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.orch, err = agent.NewOrchestrator(router)
	if err != nil {
		st.Close()
		return nil, err
	}

	return st, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand(c *cli.Context) error {
	st, err := buildStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	handler := api.NewAppHandler(api.AppDeps{
		Orchestrator: st.orch,
		Syncer:       st.syncer,
		Engine:       st.engine,
		Ledger:       st.ledger,
		Token:        c.String("token"),
	})

	addr := c.String("addr")
	slog.Info("listening", "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func backfillCommand(c *cli.Context) error {
	st, err := buildStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	var types []core.EntityType
	for _, raw := range c.StringSlice("entity-types") {
		t, err := core.ParseEntityType(raw)
		if err != nil {
			return err
		}
		types = append(types, t)
	}

	if c.Bool("reprocess-failures") {
		var filter core.EntityType
		if len(types) == 1 {
			filter = types[0]
		} else if len(types) > 1 {
			return fmt.Errorf("reprocessing accepts at most one entity type")
		}
		report, err := st.engine.ReprocessFailures(ctx, storageFailureQuery(filter, c))
		if err != nil {
			return err
		}
		return printJSON(report)
	}

	req := backfill.Request{
		EntityTypes:           types,
		DryRun:                c.Bool("dry-run"),
		BatchSize:             c.Int("batch-size"),
		MaxItemAttempts:       c.Int("max-attempts"),
		FailureAlertThreshold: c.Float64("failure-threshold"),
	}
	if c.IsSet("entity-id") {
		id := c.Int64("entity-id")
		req.EntityID = &id
	}
	if raw := c.String("from"); raw != "" {
		t, err := core.ParseDate(raw)
		if err != nil {
			return err
		}
		req.From = &t
	}
	if raw := c.String("to"); raw != "" {
		t, err := core.ParseDate(raw)
		if err != nil {
			return err
		}
		req.To = &t
	}

	report, err := st.engine.Run(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("usage: semdex ask <question>")
	}

	st, err := buildStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	corr := core.NewCorrelation("cli", "operator")
	resp, err := st.orch.Ask(context.Background(), question, corr)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: semdex search <query>")
	}

	st, err := buildStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	var types []core.EntityType
	for _, raw := range c.StringSlice("entity-types") {
		types = append(types, core.EntityType(raw))
	}

	hits, err := st.syncer.Search(context.Background(), query, c.Int("top-k"), types)
	if err != nil {
		return err
	}
	return printJSON(hits)
}

func storageFailureQuery(filter core.EntityType, c *cli.Context) storage.FailureQuery {
	return storage.FailureQuery{
		EntityType:       filter,
		IncludePermanent: c.Bool("include-permanent"),
		Limit:            c.Int("limit"),
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
