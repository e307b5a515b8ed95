// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"fmt"

	"github.com/kratos0002/lit-finder/internal/models"
)

// fallbackScoreTop is the score of the first synthesized recommendation;
// each subsequent entry drops by fallbackScoreStep.
const (
	fallbackScoreTop  = 70
	fallbackScoreStep = 5
	fallbackCount     = 3
)

// Fallback synthesizes recommendations when every provider failed. The
// output is deterministic for a given search term: stable IDs, fixed
// descending scores, provenance ProvenanceFallback. Callers must never
// cache it; a degraded answer should not outlive the outage that caused it.
func Fallback(query models.QueryContext) []models.Recommendation {
	term := query.SearchTerm

	recs := make([]models.Recommendation, 0, fallbackCount)
	for i := 0; i < fallbackCount; i++ {
		recs = append(recs, models.Recommendation{
			ID:         fmt.Sprintf("fallback-%d", i+1),
			Title:      fmt.Sprintf("Reading list for %q (%d)", term, i+1),
			Author:     "System Generated",
			Summary:    fmt.Sprintf("A placeholder suggestion related to %q while recommendation services are unavailable.", term),
			Category:   "Fallback",
			MatchScore: fallbackScoreTop - i*fallbackScoreStep,
			Source:     models.ProvenanceFallback,
		})
	}
	return recs
}
