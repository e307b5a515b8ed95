// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"context"
	"errors"

	"github.com/kratos0002/lit-finder/internal/breaker"
	"github.com/kratos0002/lit-finder/internal/cache"
	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/metrics"
	"github.com/kratos0002/lit-finder/internal/models"
	"github.com/kratos0002/lit-finder/internal/providers"
)

// ErrUnknownTier is returned when a request names a tier that is not
// configured. Request validation normally catches this first.
var ErrUnknownTier = errors.New("unknown tier")

// Request is one recommendation request. SkipCache forces a fresh
// provider round-trip; the fresh result still lands in the cache.
type Request struct {
	Query     models.QueryContext
	SkipCache bool
}

// Response is the engine's answer.
type Response struct {
	Result *models.AggregateResult
	Tier   string
	// Cached is true when the result was served from the cache without
	// touching any provider.
	Cached bool
	// Degraded is true when the whole answer came from the fallback
	// generator. Degraded results are never cached.
	Degraded bool
}

// Engine orchestrates tiered provider fan-out with caching, circuit
// breaking and fallback. Safe for concurrent use.
type Engine struct {
	tiers        *TierSet
	store        cache.Store
	registry     *breaker.Registry
	providers    map[string]providers.Provider
	personalized bool
}

// New assembles the engine. The provider map holds only enabled
// providers; tiers referencing a disabled provider simply skip it.
func New(cfg *config.Config, store cache.Store, registry *breaker.Registry, provs map[string]providers.Provider) *Engine {
	return &Engine{
		tiers:        NewTierSet(cfg.Tiers, cfg.API.DefaultTier),
		store:        store,
		registry:     registry,
		providers:    provs,
		personalized: cfg.Cache.Personalized,
	}
}

// Tiers exposes the resolved tier set for validation and status endpoints.
func (e *Engine) Tiers() *TierSet { return e.tiers }

// CacheStats exposes the cache counters for health reporting.
func (e *Engine) CacheStats() cache.StatsSnapshot { return e.store.GetStats() }

// Recommend serves one request: cache first, then tier fan-out, then
// fallback if nothing usable arrived. It never fails because providers
// failed; the only error is an unknown tier. A caller that goes away
// mid-flight does not abort the work: provider calls run to completion
// within the tier budget and the result still lands in the cache.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	query := req.Query.BoundHistory()

	tier, ok := e.tiers.Resolve(query.Tier)
	if !ok {
		return nil, ErrUnknownTier
	}
	metrics.TierRequests.WithLabelValues(tier.Name).Inc()

	key := cache.Fingerprint(query.UserID, query.SearchTerm, tier.Name, e.personalized)

	if !req.SkipCache {
		if result, hit := e.store.Get(key); hit {
			metrics.CacheHits.Inc()
			logging.Ctx(ctx).Debug().Str("tier", tier.Name).Msg("Cache hit")
			return &Response{Result: result, Tier: tier.Name, Cached: true}, nil
		}
		metrics.CacheMisses.Inc()
	}

	agg := newAggregator()
	degraded, _ := e.run(ctx, tier, query, agg, nil)

	result := agg.finalize()
	if !degraded {
		e.store.Set(key, result)
	}

	return &Response{Result: result, Tier: tier.Name, Degraded: degraded}, nil
}

// onAddedFunc observes each merge: the newly accepted recommendations in
// arrival order. A non-nil return stops further emission (used when a
// streaming client disconnects) but never aborts collection.
type onAddedFunc func(added []models.Recommendation) error

// run executes the tier against the providers, folding arrivals into agg.
// Provider work is detached from the caller's cancellation: a client that
// disconnects stops receiving envelopes, but in-flight calls run to
// completion within the tier budget so the cache still benefits.
// Returns degraded=true when the fallback generator produced the content,
// and the first emission error if a callback refused an envelope.
func (e *Engine) run(ctx context.Context, tier Tier, query models.QueryContext, agg *aggregator, onAdded onAddedFunc) (degraded bool, emitErr error) {
	budgetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tier.Budget)
	defer cancel()

	results := make(chan *models.ProviderResult, len(tier.Providers))
	launched := 0
	for _, name := range tier.Providers {
		prov, br, ok := e.lookup(name)
		if !ok {
			continue
		}
		launched++
		go func() {
			// Execute never errors; failures arrive as the breaker's
			// fallback result and merge to nothing.
			results <- br.Execute(budgetCtx, func(callCtx context.Context) (*models.ProviderResult, error) {
				return prov.Fetch(callCtx, query, nil)
			})
		}()
	}

	// Collect in arrival order. Every launched goroutine sends exactly
	// one result within the budget, so this loop is bounded.
	for i := 0; i < launched; i++ {
		res := <-results
		added := agg.add(res)
		if onAdded != nil && len(added) > 0 {
			if err := onAdded(added); err != nil {
				emitErr = err
				onAdded = nil
			}
		}
	}

	// Second pass: ask the discovery provider for works outside the set
	// collected so far. Comprehensive tier only, by configuration.
	if tier.SecondPass != "" {
		if err := e.secondPass(budgetCtx, tier, query, agg, onAdded); err != nil {
			emitErr = err
			onAdded = nil
		}
	}

	if !agg.empty() {
		return false, emitErr
	}

	// Every provider failed or answered empty: synthesize.
	metrics.FallbackResponses.Inc()
	logging.Ctx(ctx).Warn().
		Str("tier", tier.Name).
		Str("search_term", query.SearchTerm).
		Msg("All providers unavailable, serving fallback")

	added := agg.addRecommendations(Fallback(query))
	if onAdded != nil && len(added) > 0 {
		if err := onAdded(added); err != nil {
			emitErr = err
		}
	}
	return true, emitErr
}

// secondPass is best-effort: a failed call contributes nothing and the
// returned error, if any, is an emission error from onAdded.
func (e *Engine) secondPass(budgetCtx context.Context, tier Tier, query models.QueryContext, agg *aggregator, onAdded onAddedFunc) error {
	prov, br, ok := e.lookup(tier.SecondPass)
	if !ok {
		return nil
	}

	known := agg.knownTitles()
	res := br.Execute(budgetCtx, func(callCtx context.Context) (*models.ProviderResult, error) {
		return prov.Fetch(callCtx, query, known)
	})

	added := agg.add(res)
	if onAdded != nil && len(added) > 0 {
		return onAdded(added)
	}
	return nil
}

// lookup resolves a provider name to its adapter and breaker. Disabled or
// unregistered providers resolve to false and are skipped.
func (e *Engine) lookup(name string) (providers.Provider, *breaker.Breaker, bool) {
	prov, ok := e.providers[name]
	if !ok {
		return nil, nil, false
	}
	br, ok := e.registry.Get(name)
	if !ok {
		logging.Warn().Str("provider", name).Msg("Provider has no registered breaker, skipping")
		return nil, nil, false
	}
	return prov, br, true
}

// RegisterProviders builds breakers for each provider and registers them.
// Called once from main during assembly. The per-provider fallback is an
// empty contribution; the engine-level Fallback generator covers the case
// where every provider comes back empty.
func RegisterProviders(registry *breaker.Registry, cfg config.BreakerConfig, provs map[string]providers.Provider) {
	for name, prov := range provs {
		registry.Register(breaker.New(name, prov.Timeout(), cfg, func(error) *models.ProviderResult {
			return &models.ProviderResult{}
		}))
	}
}
