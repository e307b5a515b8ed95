// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kratos0002/lit-finder/internal/breaker"
	"github.com/kratos0002/lit-finder/internal/cache"
	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/models"
	"github.com/kratos0002/lit-finder/internal/providers"
)

// fakeProvider is a scripted Provider for engine tests.
type fakeProvider struct {
	name  string
	res   *models.ProviderResult
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls atomic.Int64
	known [][]string
}

func (f *fakeProvider) Name() string           { return f.name }
func (f *fakeProvider) Timeout() time.Duration { return time.Second }

func (f *fakeProvider) Fetch(ctx context.Context, query models.QueryContext, known []string) (*models.ProviderResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.known = append(f.known, append([]string(nil), known...))
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func rec(title, author, source string, score int) models.Recommendation {
	return models.Recommendation{
		ID: title + "-id", Title: title, Author: author, Source: source, MatchScore: score,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{Type: "memory", TTL: time.Minute},
		Breaker: config.BreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  time.Minute,
		},
		Tiers: map[string]config.TierConfig{
			"fast": {
				Budget:    time.Second,
				Providers: []string{"perplexity"},
			},
			"standard": {
				Budget:    2 * time.Second,
				Providers: []string{"perplexity", "claude"},
			},
			"comprehensive": {
				Budget:     3 * time.Second,
				Providers:  []string{"perplexity", "claude"},
				SecondPass: "openai",
			},
		},
		API: config.APIConfig{DefaultTier: "standard"},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, provs ...*fakeProvider) (*Engine, cache.Store) {
	t.Helper()

	store := cache.NewMemory(cfg.Cache.TTL)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	registry := breaker.NewRegistry()
	pm := make(map[string]providers.Provider, len(provs))
	for _, p := range provs {
		pm[p.name] = p
	}
	RegisterProviders(registry, cfg.Breaker, pm)

	return New(cfg, store, registry, pm), store
}

func TestRecommendMergesProviders(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{
			rec("Dune", "Frank Herbert", "perplexity", 90),
			rec("Hyperion", "Dan Simmons", "perplexity", 80),
		},
		Reviews: []models.ReviewItem{{Title: "Dune at 60", Source: "The Guardian"}},
	}}
	claude := &fakeProvider{name: "claude", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{
			rec("The Dispossessed", "Ursula K. Le Guin", "claude", 95),
		},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "science fiction", Tier: "standard"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	if resp.Cached || resp.Degraded {
		t.Errorf("unexpected flags: %+v", resp)
	}
	if len(resp.Result.Recommendations) != 3 {
		t.Fatalf("expected 3 merged recommendations, got %d", len(resp.Result.Recommendations))
	}
	if resp.Result.TopBook == nil || resp.Result.TopBook.Title != "The Dispossessed" {
		t.Errorf("expected highest score as top book, got %+v", resp.Result.TopBook)
	}
	if resp.Result.TopReview == nil || resp.Result.TopReview.Source != "The Guardian" {
		t.Errorf("expected review channel carried through, got %+v", resp.Result.TopReview)
	}
}

func TestRecommendDeduplicatesByTitleAuthor(t *testing.T) {
	// Claude answers faster with its copy of Dune; Perplexity's copy must
	// not displace it.
	perplexity := &fakeProvider{name: "perplexity", delay: 50 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{
			rec("DUNE", "frank herbert", "perplexity", 99),
		},
	}}
	claude := &fakeProvider{name: "claude", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{
			rec("Dune", "Frank Herbert", "claude", 85),
		},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "standard"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	if len(resp.Result.Recommendations) != 1 {
		t.Fatalf("expected dedupe to a single entry, got %d", len(resp.Result.Recommendations))
	}
	if got := resp.Result.Recommendations[0].Source; got != "claude" {
		t.Errorf("first arrival must win, got source %q", got)
	}
}

func TestRecommendCacheHitSkipsProviders(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity)
	req := Request{Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"}}

	if _, err := e.Recommend(context.Background(), req); err != nil {
		t.Fatalf("first recommend failed: %v", err)
	}
	before := perplexity.calls.Load()

	resp, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("second recommend failed: %v", err)
	}
	if !resp.Cached {
		t.Error("expected cached response")
	}
	if perplexity.calls.Load() != before {
		t.Error("cache hit must not call providers")
	}
}

func TestRecommendCacheNormalizesTerm(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity)

	if _, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "The  DISPOSSESSED", Tier: "fast"},
	}); err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u2", SearchTerm: " the dispossessed ", Tier: "fast"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if !resp.Cached {
		t.Error("spelling variants of the same term must share a cache slot")
	}
}

func TestRecommendSkipCacheRefreshes(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity)
	query := models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"}

	if _, err := e.Recommend(context.Background(), Request{Query: query}); err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	before := perplexity.calls.Load()

	resp, err := e.Recommend(context.Background(), Request{Query: query, SkipCache: true})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if resp.Cached {
		t.Error("skip_cache must bypass the cache read")
	}
	if perplexity.calls.Load() != before+1 {
		t.Error("skip_cache must call providers")
	}
}

func TestRecommendFallbackWhenAllFail(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", err: providers.ErrProviderTransport}
	claude := &fakeProvider{name: "claude", err: providers.ErrMalformedPayload}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)
	req := Request{Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "standard"}}

	resp, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("recommend must not fail on provider errors: %v", err)
	}
	if !resp.Degraded {
		t.Error("expected degraded response")
	}
	if len(resp.Result.Recommendations) == 0 {
		t.Fatal("fallback must produce recommendations")
	}
	for _, r := range resp.Result.Recommendations {
		if r.Source != models.ProvenanceFallback {
			t.Errorf("expected fallback provenance, got %q", r.Source)
		}
	}

	// Degraded results must not be cached: the next request hits providers.
	before := perplexity.calls.Load()
	resp2, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("second recommend failed: %v", err)
	}
	if resp2.Cached {
		t.Error("fallback result must not be served from cache")
	}
	if perplexity.calls.Load() == before {
		t.Error("expected providers to be retried after a fallback response")
	}
}

func TestRecommendPartialFailureUsesSurvivors(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", err: providers.ErrProviderTimeout}
	claude := &fakeProvider{name: "claude", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("The Dispossessed", "Ursula K. Le Guin", "claude", 95)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "utopia", Tier: "standard"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if resp.Degraded {
		t.Error("surviving provider content must not be degraded")
	}
	if len(resp.Result.Recommendations) != 1 || resp.Result.Recommendations[0].Source != "claude" {
		t.Errorf("unexpected result: %+v", resp.Result.Recommendations)
	}
}

func TestComprehensiveSecondPassExcludesKnownTitles(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("The Dispossessed", "Ursula K. Le Guin", "claude", 95)},
	}}
	openai := &fakeProvider{name: "openai", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Hyperion", "Dan Simmons", "openai", 80)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude, openai)

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "science fiction", Tier: "comprehensive"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	if len(resp.Result.Recommendations) != 3 {
		t.Fatalf("expected second pass contribution, got %d items", len(resp.Result.Recommendations))
	}

	openai.mu.Lock()
	defer openai.mu.Unlock()
	if len(openai.known) != 1 {
		t.Fatalf("expected one second-pass call, got %d", len(openai.known))
	}
	known := openai.known[0]
	if len(known) != 2 {
		t.Fatalf("expected 2 known titles passed to second pass, got %v", known)
	}
}

func TestRecommendUnknownTier(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	_, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "turbo"},
	})
	if err != ErrUnknownTier {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestRecommendEmptyTierUsesDefault(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Solaris", "Stanislaw Lem", "claude", 85)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "first contact"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if resp.Tier != "standard" {
		t.Errorf("expected default tier standard, got %q", resp.Tier)
	}
	if claude.calls.Load() != 1 {
		t.Error("default standard tier must fan out to claude")
	}
}

func TestTierBudgetExpiryDoesNotTripBreaker(t *testing.T) {
	// The provider is healthy and well inside its own 1s timeout, but the
	// fast tier budget is shorter than its answer time. Repeated budget
	// expiries must not open the circuit.
	cfg := testConfig()
	cfg.Tiers["fast"] = config.TierConfig{
		Budget:    50 * time.Millisecond,
		Providers: []string{"perplexity"},
	}
	cfg.Tiers["patient"] = config.TierConfig{
		Budget:    2 * time.Second,
		Providers: []string{"perplexity"},
	}
	perplexity := &fakeProvider{name: "perplexity", delay: 300 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	store := cache.NewMemory(cfg.Cache.TTL)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	registry := breaker.NewRegistry()
	pm := map[string]providers.Provider{"perplexity": perplexity}
	RegisterProviders(registry, cfg.Breaker, pm)
	e := New(cfg, store, registry, pm)

	for i := 0; i < 3; i++ {
		resp, err := e.Recommend(context.Background(), Request{
			Query:     models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"},
			SkipCache: true,
		})
		if err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		if !resp.Degraded {
			t.Fatalf("request %d: expected degraded after budget exhaustion", i)
		}
	}

	br, ok := registry.Get("perplexity")
	if !ok {
		t.Fatal("missing breaker")
	}
	if br.State() != "closed" {
		t.Fatalf("budget expiries must not open the circuit, got %s", br.State())
	}

	// A tier with room for the provider's answer still gets real content.
	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "patient"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if resp.Degraded || len(resp.Result.Recommendations) != 1 {
		t.Errorf("expected real content from a healthy provider, got %+v", resp)
	}
}

func TestRecommendCallerGoneStillCaches(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", delay: 100 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity)
	req := Request{Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// The caller going away must not cancel the in-flight provider call.
	resp, err := e.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if resp.Degraded || len(resp.Result.Recommendations) != 1 {
		t.Fatalf("in-flight call must run to completion, got %+v", resp)
	}

	// Other callers benefit from the cached result.
	before := perplexity.calls.Load()
	resp2, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("second recommend failed: %v", err)
	}
	if !resp2.Cached {
		t.Error("expected cached result after disconnected request completed")
	}
	if perplexity.calls.Load() != before {
		t.Error("cache hit must not call providers")
	}
}

func TestTierBudgetCutsSlowProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Tiers["fast"] = config.TierConfig{
		Budget:    50 * time.Millisecond,
		Providers: []string{"perplexity"},
	}
	perplexity := &fakeProvider{name: "perplexity", delay: time.Second, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, cfg, perplexity)

	start := time.Now()
	resp, err := e.Recommend(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("budget not enforced, took %s", elapsed)
	}
	if !resp.Degraded {
		t.Error("expected fallback after budget exhaustion")
	}
}
