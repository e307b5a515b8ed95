// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import "github.com/kratos0002/lit-finder/internal/models"

// aggregator merges provider contributions for one request. Not safe for
// concurrent use; the engine serializes adds on its collection goroutine.
//
// Recommendations keep arrival order. Duplicates are detected by the
// case-insensitive (title, author) pair and the first arrival wins, so a
// later provider's copy of a book never displaces an earlier one.
type aggregator struct {
	seen   map[string]struct{}
	result models.AggregateResult
}

func newAggregator() *aggregator {
	return &aggregator{seen: make(map[string]struct{})}
}

// add folds one provider result in and returns the recommendations that
// were actually new, in arrival order. Review and social channels keep
// the first item seen and ignore the rest.
func (a *aggregator) add(res *models.ProviderResult) []models.Recommendation {
	if res == nil {
		return nil
	}

	var added []models.Recommendation
	for _, rec := range res.Recommendations {
		key := rec.DedupeKey()
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.result.Recommendations = append(a.result.Recommendations, rec)
		added = append(added, rec)
	}

	if a.result.TopReview == nil && len(res.Reviews) > 0 {
		review := res.Reviews[0]
		a.result.TopReview = &review
	}
	if a.result.TopSocial == nil && len(res.Social) > 0 {
		social := res.Social[0]
		a.result.TopSocial = &social
	}

	return added
}

// addRecommendations folds in bare recommendations (the fallback path).
func (a *aggregator) addRecommendations(recs []models.Recommendation) []models.Recommendation {
	return a.add(&models.ProviderResult{Recommendations: recs})
}

// empty reports whether no recommendations have been collected.
func (a *aggregator) empty() bool {
	return len(a.result.Recommendations) == 0
}

// knownTitles returns the titles collected so far, for second-pass
// exclusion prompts.
func (a *aggregator) knownTitles() []string {
	titles := make([]string, 0, len(a.result.Recommendations))
	for _, rec := range a.result.Recommendations {
		titles = append(titles, rec.Title)
	}
	return titles
}

// finalize computes the top pick and returns the completed result. The top
// book is the highest score collected; on ties the earlier arrival wins.
func (a *aggregator) finalize() *models.AggregateResult {
	for i := range a.result.Recommendations {
		if a.result.TopBook == nil || a.result.Recommendations[i].MatchScore > a.result.TopBook.MatchScore {
			a.result.TopBook = &a.result.Recommendations[i]
		}
	}
	return &a.result
}
