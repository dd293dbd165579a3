package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jordanharb/moneytrail/internal/aggregate"
	"github.com/jordanharb/moneytrail/internal/cache"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/gateway"
	"github.com/jordanharb/moneytrail/internal/llm"
	"github.com/jordanharb/moneytrail/internal/pairing"
	"github.com/jordanharb/moneytrail/internal/pipeline"
	"github.com/jordanharb/moneytrail/internal/resolve"
	"github.com/jordanharb/moneytrail/internal/service"
	"github.com/jordanharb/moneytrail/internal/tracker"
	"github.com/jordanharb/moneytrail/internal/validate"
)

// app bundles the wired pipeline with whatever needs closing afterwards.
type app struct {
	pipeline *pipeline.Pipeline
	engine   *validate.Engine
	store    *tracker.SQLiteStore
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// buildApp wires the full pipeline from configuration. The reasoning client
// is only constructed when a command needs it; pass needReasoner false for
// deterministic-only commands so a missing API key doesn't block them.
func buildApp(ctx context.Context, needReasoner bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	resultCache := cache.New(cfg.Cache.Capacity)
	gw, err := gateway.New(cfg.Gateway, gateway.WithCache(resultCache, cfg.Cache.DonationTTL, map[string]time.Duration{
		"get_sessions": cfg.Cache.SessionTTL,
	}))
	if err != nil {
		return nil, fmt.Errorf("creating data gateway: %w", err)
	}

	var reasoner service.Reasoner
	var disambiguator resolve.Disambiguator
	if needReasoner {
		client, clientErr := llm.NewClient(llm.Config{
			Provider:          cfg.Reasoner.Provider,
			APIKey:            cfg.Reasoner.APIKey,
			Model:             cfg.Reasoner.Model,
			Timeout:           int(cfg.Reasoner.Timeout.Seconds()),
			RequestsPerMinute: cfg.Reasoner.RequestsPerMinute,
		})
		if clientErr != nil {
			return nil, fmt.Errorf("creating reasoning client: %w", clientErr)
		}
		reasoner = client
		disambiguator = resolve.NewReasoned(client, cfg.Reasoner.Timeout)
	}

	store, err := tracker.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	engine := validate.NewEngine(gw, reasoner, cfg.Pairing)
	p := pipeline.New(
		resolve.New(gw, disambiguator),
		aggregate.New(gw, cfg.Gateway, cfg.Relevance),
		pairing.NewGenerator(cfg.Pairing, cfg.Relevance),
		engine,
		tracker.New(store),
	)

	return &app{pipeline: p, engine: engine, store: store}, nil
}
