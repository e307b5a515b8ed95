// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/logging"
)

// maxResponseBytes caps provider response bodies. Answers are a few KB of
// JSON; anything near the cap is garbage.
const maxResponseBytes = 1 << 20

// client is the shared HTTP machinery under every provider adapter: one
// pooled transport, client-side rate limiting, and uniform error mapping
// onto the package sentinels.
type client struct {
	name       string
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newClient(name string, cfg config.ProviderConfig) *client {
	c := &client{
		name: name,
		url:  cfg.URL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// postJSON sends body as JSON and returns the raw response body. Transport
// failures, non-2xx statuses and oversized bodies map to
// ErrProviderTransport; context expiry surfaces as ctx.Err so the breaker
// can classify timeouts.
func (c *client) postJSON(ctx context.Context, body interface{}, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrProviderTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrProviderTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Warn().
			Str("provider", c.name).
			Int("status", resp.StatusCode).
			Msg("Provider returned non-2xx status")
		return nil, fmt.Errorf("%w: status %d", ErrProviderTransport, resp.StatusCode)
	}

	return data, nil
}

// chatMessage is one message in an OpenAI-style chat completion request.
// Perplexity and OpenAI share this wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the OpenAI-style request body.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatCompletionResponse extracts the assistant text from an OpenAI-style
// response. Everything else in the body is ignored.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatContent decodes an OpenAI-style response body and returns the first
// choice's content.
func chatContent(data []byte) (string, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedPayload)
	}
	return resp.Choices[0].Message.Content, nil
}
