// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
)

const perplexityBookPrompt = `You are a book recommendation expert. Provide detailed book recommendations related to the user's query.
Return a JSON array of books with these fields for each book:
- title: The book title
- author: The author's name
- summary: A brief summary of the book
- category: The book's main category/genre
- match_score: A number between 0 and 1 indicating relevance

Return 3-5 books. Format as a valid JSON array only, with no additional text.`

const perplexityReviewPrompt = `You are a literary review expert. Provide book review recommendations related to the user's query.
Return a JSON array of reviews with these fields for each review:
- title: The review title
- source: The publication that ran the review
- date: The publication date
- summary: A brief summary of the review content
- url: A link to the review

Return 2-3 reviews. Format as a valid JSON array only, with no additional text.`

const perplexitySocialPrompt = `You are a social media expert. Provide social media discussions related to the user's literary query.
Return a JSON array of posts with these fields for each post:
- title: The discussion title
- source: The platform hosting the discussion
- date: The post date
- summary: A brief summary of the post content
- url: A link to the discussion

Return 2-3 posts. Format as a valid JSON array only, with no additional text.`

// Perplexity is the primary provider. One Fetch fans out three prompts
// concurrently: books, editorial reviews and social discussion. Books are
// mandatory; the other two channels degrade to empty on failure.
type Perplexity struct {
	cfg    config.ProviderConfig
	client *client
}

// NewPerplexity creates the Perplexity adapter.
func NewPerplexity(cfg config.ProviderConfig) *Perplexity {
	return &Perplexity{
		cfg:    cfg,
		client: newClient("perplexity", cfg),
	}
}

// Name implements Provider.
func (p *Perplexity) Name() string { return "perplexity" }

// Timeout implements Provider.
func (p *Perplexity) Timeout() time.Duration { return p.cfg.Timeout }

// Fetch implements Provider.
func (p *Perplexity) Fetch(ctx context.Context, query models.QueryContext, known []string) (*models.ProviderResult, error) {
	var (
		wg      sync.WaitGroup
		result  models.ProviderResult
		bookErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		result.Recommendations, bookErr = p.fetchBooks(ctx, query, known)
	}()
	go func() {
		defer wg.Done()
		result.Reviews = p.fetchReviews(ctx, query)
	}()
	go func() {
		defer wg.Done()
		result.Social = p.fetchSocial(ctx, query)
	}()
	wg.Wait()

	if bookErr != nil {
		return nil, bookErr
	}
	return &result, nil
}

func (p *Perplexity) fetchBooks(ctx context.Context, query models.QueryContext, known []string) ([]models.Recommendation, error) {
	user := fmt.Sprintf("Recommend books related to: %s", query.SearchTerm)
	if len(known) > 0 {
		user += fmt.Sprintf("\nDo not include these titles: %s", strings.Join(known, "; "))
	}

	content, err := p.chat(ctx, perplexityBookPrompt, user, 1500)
	if err != nil {
		return nil, err
	}
	return DecodeRecommendations(content, p.Name())
}

func (p *Perplexity) fetchReviews(ctx context.Context, query models.QueryContext) []models.ReviewItem {
	content, err := p.chat(ctx, perplexityReviewPrompt,
		fmt.Sprintf("Find reviews related to: %s", query.SearchTerm), 1000)
	if err != nil {
		logging.Debug().Err(err).Msg("Perplexity review channel unavailable")
		return nil
	}
	return decodeReviews(content)
}

func (p *Perplexity) fetchSocial(ctx context.Context, query models.QueryContext) []models.SocialItem {
	content, err := p.chat(ctx, perplexitySocialPrompt,
		fmt.Sprintf("Find social media discussions about: %s", query.SearchTerm), 1000)
	if err != nil {
		logging.Debug().Err(err).Msg("Perplexity social channel unavailable")
		return nil
	}
	return decodeSocial(content)
}

func (p *Perplexity) chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body := chatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.5,
		MaxTokens:   maxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}

	data, err := p.client.postJSON(ctx, body, headers)
	if err != nil {
		return "", err
	}
	return chatContent(data)
}
