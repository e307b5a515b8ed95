// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/kratos0002/lit-finder/internal/engine"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
)

// RecommendStream handles POST /api/v1/recommendations/stream: the
// progressive variant delivered as Server-Sent Events. Each provider
// arrival becomes one "message" event; the terminal event carries the
// complete merged result with metadata.final true.
func (h *Handler) RecommendStream(w http.ResponseWriter, r *http.Request) {
	req := h.decodeRecommendationRequest(w, r)
	if req == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming unsupported by this connection", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.engine.Stream(r.Context(), req.engineRequest(), func(env models.StreamEnvelope) error {
		// Stop emitting the moment the client disconnects.
		if r.Context().Err() != nil {
			return r.Context().Err()
		}

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, engine.ErrUnknownTier):
		// Headers already sent; deliver the error as a terminal SSE event.
		writeSSEError(w, flusher, "VALIDATION_ERROR", "Unknown tier")
	case r.Context().Err() != nil:
		logging.Ctx(r.Context()).Debug().Msg("Stream client disconnected")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Stream aborted")
	}
}

// writeSSEError emits an error event for failures after the SSE headers
// are on the wire.
func writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	payload, err := json.Marshal(models.APIError{Code: code, Message: message})
	if err != nil {
		return
	}
	if _, err := fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload); err != nil {
		return
	}
	flusher.Flush()
}
