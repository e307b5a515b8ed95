// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kratos0002/lit-finder/internal/models"
)

func collectStream(t *testing.T, e *Engine, req Request) []models.StreamEnvelope {
	t.Helper()
	var envelopes []models.StreamEnvelope
	err := e.Stream(context.Background(), req, func(env models.StreamEnvelope) error {
		envelopes = append(envelopes, env)
		return nil
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	return envelopes
}

func TestStreamEmitsFragmentsThenFinal(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", delay: 30 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Solaris", "Stanislaw Lem", "claude", 85)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	envelopes := collectStream(t, e, Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "science fiction", Tier: "standard"},
	})

	if len(envelopes) != 3 {
		t.Fatalf("expected 2 fragments + 1 final, got %d", len(envelopes))
	}

	// Exactly one final envelope, and it is last.
	for i, env := range envelopes {
		isLast := i == len(envelopes)-1
		if env.Metadata.Final != isLast {
			t.Errorf("envelope %d: final=%v, want %v", i, env.Metadata.Final, isLast)
		}
	}

	final := envelopes[len(envelopes)-1]
	if len(final.Data.Recommendations) != 2 {
		t.Errorf("final envelope must carry the complete set, got %d", len(final.Data.Recommendations))
	}
	if final.Data.TopBook == nil || final.Data.TopBook.Title != "Dune" {
		t.Errorf("unexpected top book: %+v", final.Data.TopBook)
	}
}

func TestStreamFragmentsNeverRepeatItems(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", delay: 30 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{
			rec("Dune", "Frank Herbert", "claude", 85), // duplicate
			rec("Solaris", "Stanislaw Lem", "claude", 80),
		},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	envelopes := collectStream(t, e, Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "standard"},
	})

	seen := map[string]int{}
	for _, env := range envelopes[:len(envelopes)-1] { // fragments only
		for _, r := range env.Data.Recommendations {
			seen[r.DedupeKey()]++
		}
	}
	for key, count := range seen {
		if count > 1 {
			t.Errorf("item %q emitted %d times across fragments", key, count)
		}
	}
}

func TestStreamCacheHitCollapsesToFinal(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity)
	req := Request{Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"}}

	collectStream(t, e, req) // populate cache
	before := perplexity.calls.Load()

	envelopes := collectStream(t, e, req)
	if len(envelopes) != 1 {
		t.Fatalf("cache hit must emit only the terminal envelope, got %d", len(envelopes))
	}
	if !envelopes[0].Metadata.Final {
		t.Error("terminal envelope must be final")
	}
	if perplexity.calls.Load() != before {
		t.Error("cache hit must not call providers")
	}
}

func TestStreamMatchesRecommend(t *testing.T) {
	build := func() (*Engine, Request) {
		perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
			Recommendations: []models.Recommendation{
				rec("Dune", "Frank Herbert", "perplexity", 90),
				rec("Hyperion", "Dan Simmons", "perplexity", 70),
			},
		}}
		claude := &fakeProvider{name: "claude", delay: 20 * time.Millisecond, res: &models.ProviderResult{
			Recommendations: []models.Recommendation{rec("Solaris", "Stanislaw Lem", "claude", 85)},
		}}
		e, _ := newTestEngine(t, testConfig(), perplexity, claude)
		return e, Request{Query: models.QueryContext{UserID: "u1", SearchTerm: "sf", Tier: "standard"}}
	}

	e1, req := build()
	resp, err := e1.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	e2, req2 := build()
	envelopes := collectStream(t, e2, req2)
	final := envelopes[len(envelopes)-1]

	if len(final.Data.Recommendations) != len(resp.Result.Recommendations) {
		t.Fatalf("stream and one-shot results differ: %d vs %d items",
			len(final.Data.Recommendations), len(resp.Result.Recommendations))
	}
	for i := range final.Data.Recommendations {
		if final.Data.Recommendations[i].DedupeKey() != resp.Result.Recommendations[i].DedupeKey() {
			t.Errorf("item %d differs between stream and one-shot", i)
		}
	}
}

func TestStreamFallbackWhenAllFail(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", err: errors.New("down")}

	e, _ := newTestEngine(t, testConfig(), perplexity)

	envelopes := collectStream(t, e, Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "dune", Tier: "fast"},
	})

	final := envelopes[len(envelopes)-1]
	if !final.Metadata.Final {
		t.Fatal("expected final envelope")
	}
	if len(final.Data.Recommendations) == 0 {
		t.Fatal("fallback must reach the stream")
	}
	for _, r := range final.Data.Recommendations {
		if r.Source != models.ProvenanceFallback {
			t.Errorf("expected fallback provenance, got %q", r.Source)
		}
	}
}

func TestStreamStopsOnEmitError(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", delay: 30 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Solaris", "Stanislaw Lem", "claude", 85)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)

	clientGone := errors.New("client disconnected")
	emitted := 0
	err := e.Stream(context.Background(), Request{
		Query: models.QueryContext{UserID: "u1", SearchTerm: "sf", Tier: "standard"},
	}, func(env models.StreamEnvelope) error {
		emitted++
		return clientGone
	})

	if !errors.Is(err, clientGone) {
		t.Fatalf("expected emit error surfaced, got %v", err)
	}
	if emitted != 1 {
		t.Errorf("expected emission to stop after the failed emit, got %d", emitted)
	}
}

func TestStreamClientGoneStillCaches(t *testing.T) {
	perplexity := &fakeProvider{name: "perplexity", res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Dune", "Frank Herbert", "perplexity", 90)},
	}}
	claude := &fakeProvider{name: "claude", delay: 50 * time.Millisecond, res: &models.ProviderResult{
		Recommendations: []models.Recommendation{rec("Solaris", "Stanislaw Lem", "claude", 85)},
	}}

	e, _ := newTestEngine(t, testConfig(), perplexity, claude)
	query := models.QueryContext{UserID: "u1", SearchTerm: "sf", Tier: "standard"}

	// Client drops after the first fragment, with the slower provider
	// still in flight. The canceled request context must not abort it.
	ctx, cancel := context.WithCancel(context.Background())
	clientGone := errors.New("client disconnected")
	err := e.Stream(ctx, Request{Query: query}, func(env models.StreamEnvelope) error {
		cancel()
		return clientGone
	})
	if !errors.Is(err, clientGone) {
		t.Fatalf("expected emit error surfaced, got %v", err)
	}
	if claude.calls.Load() != 1 {
		t.Fatalf("slower provider must still have been called, got %d", claude.calls.Load())
	}

	// The merged result landed in the cache for the next caller.
	resp, rerr := e.Recommend(context.Background(), Request{Query: query})
	if rerr != nil {
		t.Fatalf("recommend failed: %v", rerr)
	}
	if !resp.Cached {
		t.Error("expected cached result after disconnected stream completed")
	}
	if len(resp.Result.Recommendations) != 2 {
		t.Errorf("cached result must carry both providers' items, got %d", len(resp.Result.Recommendations))
	}
	if perplexity.calls.Load() != 1 || claude.calls.Load() != 1 {
		t.Errorf("cache hit must not call providers again, got %d/%d",
			perplexity.calls.Load(), claude.calls.Load())
	}
}

func TestFallbackDeterministic(t *testing.T) {
	q := models.QueryContext{SearchTerm: "dune"}
	a := Fallback(q)
	b := Fallback(q)

	if len(a) != fallbackCount {
		t.Fatalf("expected %d fallback items, got %d", fallbackCount, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("fallback output must be deterministic, item %d differs", i)
		}
	}
	if a[0].MatchScore != 70 || a[1].MatchScore != 65 {
		t.Errorf("expected descending scores from 70 by 5, got %d, %d", a[0].MatchScore, a[1].MatchScore)
	}
}
