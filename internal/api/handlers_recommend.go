// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/kratos0002/lit-finder/internal/engine"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
)

// Recommend handles POST /api/v1/recommendations: one-shot tiered
// orchestration. Provider failures never fail the request; at worst the
// response carries fallback content.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	req := h.decodeRecommendationRequest(w, r)
	if req == nil {
		return
	}

	start := time.Now()
	resp, err := h.engine.Recommend(r.Context(), req.engineRequest())
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownTier):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown tier", nil)
		case r.Context().Err() != nil:
			// Client went away; nothing useful to write.
			logging.Ctx(r.Context()).Debug().Msg("Request canceled by client")
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Recommendation failed", err)
		}
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("search_term", sanitizeLogValue(req.SearchTerm)).
		Str("tier", resp.Tier).
		Bool("cached", resp.Cached).
		Bool("degraded", resp.Degraded).
		Int("count", len(resp.Result.Recommendations)).
		Dur("elapsed", time.Since(start)).
		Msg("Recommendation request served")

	meta := models.Metadata{
		Timestamp: time.Now().UTC(),
		Cached:    resp.Cached,
	}
	if !resp.Cached {
		meta.QueryTimeMS = time.Since(start).Milliseconds()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     resp.Result,
		Metadata: meta,
	})
}
