// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/models"
)

// anthropicVersion is the required API version header value.
const anthropicVersion = "2023-06-01"

const claudeSystemPrompt = `You are a literary analysis expert providing detailed thematic and stylistic recommendations.
Return a JSON array of books with these fields for each book:
- title: The book title
- author: The author's name
- summary: A brief summary of the book
- description: A short note on themes and style connecting it to the query
- category: The book's main category/genre
- match_score: A number between 0 and 1 indicating relevance

Return 3-5 books. Format as a valid JSON array only, with no additional text.`

// Claude contributes recommendations enriched with literary commentary.
// It speaks the Anthropic Messages API rather than the OpenAI chat shape.
type Claude struct {
	cfg    config.ProviderConfig
	client *client
}

// NewClaude creates the Claude adapter.
func NewClaude(cfg config.ProviderConfig) *Claude {
	return &Claude{
		cfg:    cfg,
		client: newClient("claude", cfg),
	}
}

// Name implements Provider.
func (c *Claude) Name() string { return "claude" }

// Timeout implements Provider.
func (c *Claude) Timeout() time.Duration { return c.cfg.Timeout }

// anthropicRequest is the Messages API request body.
type anthropicRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// anthropicResponse extracts the text blocks from a Messages API response.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Fetch implements Provider.
func (c *Claude) Fetch(ctx context.Context, query models.QueryContext, known []string) (*models.ProviderResult, error) {
	user := fmt.Sprintf("Provide literary recommendations for: %s", query.SearchTerm)
	if len(known) > 0 {
		user += fmt.Sprintf("\nAlready suggested elsewhere: %s", strings.Join(known, "; "))
	}

	body := anthropicRequest{
		Model:  c.cfg.Model,
		System: claudeSystemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: user},
		},
		MaxTokens: 1500,
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	data, err := c.client.postJSON(ctx, body, headers)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: no text content in response", ErrMalformedPayload)
	}

	recs, err := DecodeRecommendations(text.String(), c.Name())
	if err != nil {
		return nil, err
	}
	return &models.ProviderResult{Recommendations: recs}, nil
}
