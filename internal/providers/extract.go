// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kratos0002/lit-finder/internal/models"
)

// ExtractArray recovers a JSON array from a model answer that may wrap it
// in prose. Strategies are tried in order, most precise first:
//
//  1. The whole payload is a JSON array.
//  2. The payload contains a fenced code block holding a JSON array.
//  3. The substring from the first '[' to the last ']' parses as an array.
//
// The first strategy that yields a syntactically valid array wins; later
// strategies are not consulted. Returns false when all strategies fail.
func ExtractArray(payload string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(payload)

	// Strategy 1: clean payload
	if isJSONArray(trimmed) {
		return json.RawMessage(trimmed), true
	}

	// Strategy 2: fenced code block
	if block, ok := fencedBlock(trimmed); ok && isJSONArray(block) {
		return json.RawMessage(block), true
	}

	// Strategy 3: bracket slice
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if isJSONArray(candidate) {
			return json.RawMessage(candidate), true
		}
	}

	return nil, false
}

// fencedBlock returns the contents of the first ``` fence, tolerating an
// optional language tag on the opening line.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]

	// Skip the language tag (```json) up to the first newline.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.HasPrefix(firstLine, "[") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isJSONArray(s string) bool {
	if !strings.HasPrefix(strings.TrimSpace(s), "[") {
		return false
	}
	var probe []json.RawMessage
	return json.Unmarshal([]byte(s), &probe) == nil
}

// wireBook is the item shape providers are prompted to produce. Scores
// arrive on a 0-1 scale; extra fields are ignored.
type wireBook struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Summary     string  `json:"summary"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	MatchScore  float64 `json:"match_score"`
}

// wireItem is the review/social item shape.
type wireItem struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// DecodeRecommendations extracts and normalizes book items from a raw
// model answer. Items missing both title and author are dropped; surviving
// items get a fresh ID, the given provenance, and a 0-100 score.
func DecodeRecommendations(payload, source string) ([]models.Recommendation, error) {
	raw, ok := ExtractArray(payload)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedPayload)
	}

	var books []wireBook
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	recs := make([]models.Recommendation, 0, len(books))
	for _, b := range books {
		if strings.TrimSpace(b.Title) == "" && strings.TrimSpace(b.Author) == "" {
			continue
		}
		recs = append(recs, models.Recommendation{
			// Providers invent their own IDs; mint stable fresh ones instead.
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(b.Title),
			Author:      strings.TrimSpace(b.Author),
			Description: b.Description,
			Summary:     b.Summary,
			Category:    b.Category,
			MatchScore:  normalizeScore(b.MatchScore),
			Source:      source,
		})
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: array held no usable items", ErrMalformedPayload)
	}
	return recs, nil
}

// decodeReviews extracts review items. Unlike books, an unusable payload
// yields an empty slice: reviews are a bonus channel, not a failure.
func decodeReviews(payload string) []models.ReviewItem {
	raw, ok := ExtractArray(payload)
	if !ok {
		return nil
	}
	var items []wireItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	reviews := make([]models.ReviewItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		reviews = append(reviews, models.ReviewItem{
			Title:   strings.TrimSpace(it.Title),
			Source:  it.Source,
			Date:    it.Date,
			Summary: it.Summary,
			URL:     it.URL,
		})
	}
	return reviews
}

// decodeSocial extracts social discussion items, tolerant like decodeReviews.
func decodeSocial(payload string) []models.SocialItem {
	raw, ok := ExtractArray(payload)
	if !ok {
		return nil
	}
	var items []wireItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	social := make([]models.SocialItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		social = append(social, models.SocialItem{
			Title:   strings.TrimSpace(it.Title),
			Source:  it.Source,
			Date:    it.Date,
			Summary: it.Summary,
			URL:     it.URL,
		})
	}
	return social
}

// normalizeScore maps a 0-1 model score to the 0-100 scale, clamping
// out-of-range values. Scores already above 1 are assumed pre-scaled.
func normalizeScore(score float64) int {
	if score <= 1 {
		score *= 100
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score + 0.5)
}
