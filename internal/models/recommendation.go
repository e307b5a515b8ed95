// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package models

import (
	"strings"
	"time"
)

// ProvenanceFallback tags recommendations synthesized locally when every
// provider failed. All other provenance values are provider names.
const ProvenanceFallback = "fallback"

// MaxHistory bounds the number of prior search terms carried in a
// QueryContext. Older terms are dropped.
const MaxHistory = 10

// QueryContext carries one request's immutable search parameters.
// History is ordered most-recent-first.
type QueryContext struct {
	UserID     string   `json:"user_id"`
	SearchTerm string   `json:"search_term"`
	History    []string `json:"history,omitempty"`
	Tier       string   `json:"tier,omitempty"`
}

// BoundHistory returns a copy of the context with History truncated to
// MaxHistory entries.
func (q QueryContext) BoundHistory() QueryContext {
	if len(q.History) > MaxHistory {
		q.History = q.History[:MaxHistory]
	}
	return q
}

// Recommendation is the normalized shape every provider result is coerced
// into. MatchScore is 0-100. Source records provenance: the provider that
// produced the item, or ProvenanceFallback.
type Recommendation struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description string     `json:"description,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Category    string     `json:"category,omitempty"`
	MatchScore  int        `json:"match_score"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Source      string     `json:"source"`
}

// DedupeKey returns the identity used for deduplication: the
// case-insensitive (title, author) pair. Providers mint their own IDs for
// the same work, so the stable identifier cannot be used.
func (r Recommendation) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(r.Title)) + "|" + strings.ToLower(strings.TrimSpace(r.Author))
}

// ReviewItem is a commentary item (editorial review) attached to an
// aggregate result.
type ReviewItem struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// SocialItem is a social-discussion item attached to an aggregate result.
type SocialItem struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ProviderResult is the raw contribution of a single provider call before
// merging. Most providers fill Recommendations only; Perplexity also
// returns review and social channels.
type ProviderResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Reviews         []ReviewItem     `json:"reviews,omitempty"`
	Social          []SocialItem     `json:"social,omitempty"`
}

// AggregateResult is the merged answer for one request. Recommendations
// preserves arrival order and is deduplicated by DedupeKey; it is never
// empty in a served response (the fallback generator guarantees this).
type AggregateResult struct {
	TopBook         *Recommendation  `json:"top_book"`
	TopReview       *ReviewItem      `json:"top_review,omitempty"`
	TopSocial       *SocialItem      `json:"top_social,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// AggregateFragment is the partial-result payload of one stream envelope.
// Only newly available fields are set; the client merges fragments.
type AggregateFragment struct {
	TopBook         *Recommendation  `json:"top_book,omitempty"`
	TopReview       *ReviewItem      `json:"top_review,omitempty"`
	TopSocial       *SocialItem      `json:"top_social,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// EnvelopeMetadata carries per-envelope stream metadata.
type EnvelopeMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Final     bool      `json:"final"`
}

// StreamEnvelope is one unit of a progressive response. The envelope with
// Metadata.Final set is always last; no envelopes follow it.
type StreamEnvelope struct {
	Data     AggregateFragment `json:"data"`
	Metadata EnvelopeMetadata  `json:"metadata"`
}
