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

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/models"
)

const openAISystemPrompt = `You are a book discovery expert who surfaces lesser-known works a reader may have missed.
Return a JSON array of books with these fields for each book:
- title: The book title
- author: The author's name
- summary: A brief summary of the book
- category: The book's main category/genre
- match_score: A number between 0 and 1 indicating relevance

Return 3-5 books. Format as a valid JSON array only, with no additional text.`

// OpenAI is the second-pass discovery provider. The comprehensive tier
// calls it after the fan-out with the titles already collected, asking for
// works outside that set.
type OpenAI struct {
	cfg    config.ProviderConfig
	client *client
}

// NewOpenAI creates the OpenAI adapter.
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	return &OpenAI{
		cfg:    cfg,
		client: newClient("openai", cfg),
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Timeout implements Provider.
func (o *OpenAI) Timeout() time.Duration { return o.cfg.Timeout }

// Fetch implements Provider.
func (o *OpenAI) Fetch(ctx context.Context, query models.QueryContext, known []string) (*models.ProviderResult, error) {
	user := fmt.Sprintf("Recommend books related to: %s", query.SearchTerm)
	if len(known) > 0 {
		user += fmt.Sprintf("\nThe reader already has these, do not repeat them: %s", strings.Join(known, "; "))
	}
	if len(query.History) > 0 {
		user += fmt.Sprintf("\nTheir recent searches: %s", strings.Join(query.History, "; "))
	}

	body := chatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: openAISystemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   1500,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + o.cfg.APIKey,
	}

	data, err := o.client.postJSON(ctx, body, headers)
	if err != nil {
		return nil, err
	}
	content, err := chatContent(data)
	if err != nil {
		return nil, err
	}

	recs, err := DecodeRecommendations(content, o.Name())
	if err != nil {
		return nil, err
	}
	return &models.ProviderResult{Recommendations: recs}, nil
}
