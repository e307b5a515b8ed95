// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"context"
	"time"

	"github.com/kratos0002/lit-finder/internal/cache"
	"github.com/kratos0002/lit-finder/internal/metrics"
	"github.com/kratos0002/lit-finder/internal/models"
)

// EmitFunc delivers one stream envelope to the client. Returning an error
// (typically because the client disconnected) stops the stream; no further
// envelopes are emitted.
type EmitFunc func(models.StreamEnvelope) error

// Stream serves one request progressively. Each provider arrival that
// contributes new recommendations becomes a fragment envelope; the stream
// always ends with exactly one terminal envelope carrying the complete
// merged result and Metadata.Final set. Nothing follows the terminal
// envelope.
//
// A cache hit collapses the stream to the terminal envelope alone. When
// emit reports the client gone, no further envelopes are written, but
// in-flight provider calls still run to completion and the merged result
// is cached for other callers; Stream then returns the emit error.
func (e *Engine) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	query := req.Query.BoundHistory()

	tier, ok := e.tiers.Resolve(query.Tier)
	if !ok {
		return ErrUnknownTier
	}
	metrics.TierRequests.WithLabelValues(tier.Name).Inc()

	key := cache.Fingerprint(query.UserID, query.SearchTerm, tier.Name, e.personalized)

	if !req.SkipCache {
		if result, hit := e.store.Get(key); hit {
			metrics.CacheHits.Inc()
			return emitFinal(emit, result)
		}
		metrics.CacheMisses.Inc()
	}

	agg := newAggregator()
	var sentReview, sentSocial bool

	degraded, emitErr := e.run(ctx, tier, query, agg, func(added []models.Recommendation) error {
		fragment := models.AggregateFragment{Recommendations: added}

		// Review/social channels ride along with the first fragment after
		// they become available.
		if !sentReview && agg.result.TopReview != nil {
			fragment.TopReview = agg.result.TopReview
			sentReview = true
		}
		if !sentSocial && agg.result.TopSocial != nil {
			fragment.TopSocial = agg.result.TopSocial
			sentSocial = true
		}

		metrics.StreamEnvelopesTotal.WithLabelValues("fragment").Inc()
		return emit(models.StreamEnvelope{
			Data:     fragment,
			Metadata: models.EnvelopeMetadata{Timestamp: time.Now().UTC()},
		})
	})

	result := agg.finalize()
	if !degraded {
		e.store.Set(key, result)
	}

	if emitErr != nil {
		return emitErr
	}
	return emitFinal(emit, result)
}

// emitFinal sends the terminal envelope with the complete merged result.
func emitFinal(emit EmitFunc, result *models.AggregateResult) error {
	metrics.StreamEnvelopesTotal.WithLabelValues("final").Inc()
	return emit(models.StreamEnvelope{
		Data: models.AggregateFragment{
			TopBook:         result.TopBook,
			TopReview:       result.TopReview,
			TopSocial:       result.TopSocial,
			Recommendations: result.Recommendations,
		},
		Metadata: models.EnvelopeMetadata{Timestamp: time.Now().UTC(), Final: true},
	})
}
