// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package main is the entry point for the Litfinder server.
//
// Litfinder orchestrates book recommendations across multiple AI
// providers (Perplexity, Claude, OpenAI) with per-provider circuit
// breakers, a fingerprinted TTL cache, tiered time budgets, and a
// deterministic fallback so the API always answers.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Cache: in-memory TTL store or BadgerDB, selected by CACHE_TYPE
//  3. Providers: one adapter per enabled upstream, each behind its own
//     circuit breaker (gobreaker)
//  4. Engine: tier resolution, fan-out, merge, fallback
//  5. HTTP server: REST, SSE and WebSocket endpoints under a suture
//     supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, then the config file pointed at
// by CONFIG_PATH (default config.yaml), then built-in defaults.
//
// Provider credentials come from the environment:
//   - PERPLEXITY_API_KEY
//   - ANTHROPIC_API_KEY
//   - OPENAI_API_KEY
//
// A provider without a key stays disabled; tiers referencing it simply
// skip it and the fallback generator covers the worst case.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the configured
// shutdown timeout, then closes the cache backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kratos0002/lit-finder/internal/api"
	"github.com/kratos0002/lit-finder/internal/breaker"
	"github.com/kratos0002/lit-finder/internal/cache"
	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/engine"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/providers"
	"github.com/kratos0002/lit-finder/internal/supervisor"
	"github.com/kratos0002/lit-finder/internal/supervisor/services"
	"github.com/kratos0002/lit-finder/internal/validation"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("cache_type", cfg.Cache.Type).
		Str("default_tier", cfg.API.DefaultTier).
		Msg("Starting Litfinder")

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	provs := buildProviders(cfg)
	if len(provs) == 0 {
		logging.Warn().Msg("No providers enabled, every response will be a fallback")
	}

	registry := breaker.NewRegistry()
	engine.RegisterProviders(registry, cfg.Breaker, provs)

	eng := engine.New(cfg, store, registry, provs)
	validation.SetAllowedTiers(cfg.TierNames())

	router := api.NewRouter(api.NewHandler(eng, registry), cfg)

	// Streaming endpoints hold the response open; the write timeout must
	// cover the longest tier budget.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewStatsReporterService(store, registry, time.Minute))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel; it closes when the supervisor finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildProviders creates an adapter for every enabled provider. A
// provider is enabled when its config says so and an API key is present.
func buildProviders(cfg *config.Config) map[string]providers.Provider {
	provs := make(map[string]providers.Provider)

	if p := cfg.Providers.Perplexity; p.Enabled && p.APIKey != "" {
		provs["perplexity"] = providers.NewPerplexity(p)
	}
	if p := cfg.Providers.Claude; p.Enabled && p.APIKey != "" {
		provs["claude"] = providers.NewClaude(p)
	}
	if p := cfg.Providers.OpenAI; p.Enabled && p.APIKey != "" {
		provs["openai"] = providers.NewOpenAI(p)
	}

	for name := range provs {
		logging.Info().Str("provider", name).Msg("Provider enabled")
	}
	return provs
}
