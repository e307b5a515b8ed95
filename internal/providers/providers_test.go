// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/models"
)

func testProviderConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		Enabled: true,
		URL:     url,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}
}

// chatServer fakes an OpenAI-style endpoint returning content for every call.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
}

func TestPerplexityFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		// Answer each of the three prompts with a matching payload.
		var content string
		switch {
		case len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "book recommendation expert"):
			content = `[{"title": "Dune", "author": "Frank Herbert", "match_score": 0.9}]`
		case len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "literary review expert"):
			content = `[{"title": "Dune at 60", "source": "The Guardian"}]`
		default:
			content = `[{"title": "r/books on Dune", "source": "Reddit"}]`
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewPerplexity(testProviderConfig(srv.URL))
	res, err := p.Fetch(context.Background(), models.QueryContext{UserID: "u1", SearchTerm: "dune"}, nil)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(res.Recommendations) != 1 || res.Recommendations[0].Title != "Dune" {
		t.Errorf("unexpected recommendations: %v", res.Recommendations)
	}
	if res.Recommendations[0].Source != "perplexity" {
		t.Errorf("expected perplexity provenance, got %q", res.Recommendations[0].Source)
	}
	if len(res.Reviews) != 1 || res.Reviews[0].Source != "The Guardian" {
		t.Errorf("unexpected reviews: %v", res.Reviews)
	}
	if len(res.Social) != 1 || res.Social[0].Source != "Reddit" {
		t.Errorf("unexpected social items: %v", res.Social)
	}
}

func TestPerplexityBooksFailureIsFatal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPerplexity(testProviderConfig(srv.URL))
	_, err := p.Fetch(context.Background(), models.QueryContext{SearchTerm: "dune"}, nil)
	if !errors.Is(err, ErrProviderTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 upstream calls, got %d", calls.Load())
	}
}

func TestPerplexityMalformedBooks(t *testing.T) {
	srv := chatServer(t, "I'm sorry, I cannot answer that in JSON today.")
	defer srv.Close()

	p := NewPerplexity(testProviderConfig(srv.URL))
	_, err := p.Fetch(context.Background(), models.QueryContext{SearchTerm: "dune"}, nil)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
}

func TestOpenAISecondPassExcludesKnown(t *testing.T) {
	var sawExclusion atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		for _, m := range req.Messages {
			if strings.Contains(m.Content, "Dune") {
				sawExclusion.Store(true)
			}
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `[{"title": "Hyperion", "author": "Dan Simmons", "match_score": 0.8}]`}},
			},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	o := NewOpenAI(testProviderConfig(srv.URL))
	res, err := o.Fetch(context.Background(), models.QueryContext{SearchTerm: "space opera"}, []string{"Dune"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !sawExclusion.Load() {
		t.Error("expected known titles forwarded in the prompt")
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Source != "openai" {
		t.Errorf("unexpected result: %v", res.Recommendations)
	}
}

func TestClaudeFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}
		resp := map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": `[{"title": "The Dispossessed", "author": "Ursula K. Le Guin", "description": "Anarchist utopia study", "match_score": 0.92}]`},
			},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClaude(testProviderConfig(srv.URL))
	res, err := c.Fetch(context.Background(), models.QueryContext{SearchTerm: "utopian fiction"}, nil)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(res.Recommendations))
	}
	rec := res.Recommendations[0]
	if rec.Source != "claude" || rec.Description == "" {
		t.Errorf("unexpected recommendation: %+v", rec)
	}
}

func TestClientTimeoutSurfacesContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		io.Copy(io.Discard, r.Body) //nolint:errcheck
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	o := NewOpenAI(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := o.Fetch(ctx, models.QueryContext{SearchTerm: "dune"}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
