// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kratos0002/lit-finder/internal/breaker"
	"github.com/kratos0002/lit-finder/internal/engine"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
	"github.com/kratos0002/lit-finder/internal/validation"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	engine   *engine.Engine
	registry *breaker.Registry
}

// NewHandler creates the handler set.
func NewHandler(eng *engine.Engine, registry *breaker.Registry) *Handler {
	return &Handler{engine: eng, registry: registry}
}

// recommendationRequest is the POST body for the recommendation endpoints.
type recommendationRequest struct {
	UserID     string   `json:"user_id" validate:"required"`
	SearchTerm string   `json:"search_term" validate:"required,min=1,max=500"`
	History    []string `json:"history,omitempty" validate:"omitempty,max=50"`
	Tier       string   `json:"tier,omitempty" validate:"omitempty,tier"`
	SkipCache  bool     `json:"skip_cache,omitempty"`
}

// decodeRecommendationRequest parses and validates the request body.
// A nil return means the error response has already been written.
func (h *Handler) decodeRecommendationRequest(w http.ResponseWriter, r *http.Request) *recommendationRequest {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", err)
		return nil
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			},
		})
		return nil
	}

	return &req
}

// engineRequest converts a decoded body into an engine request.
func (req *recommendationRequest) engineRequest() engine.Request {
	return engine.Request{
		Query: models.QueryContext{
			UserID:     req.UserID,
			SearchTerm: req.SearchTerm,
			History:    req.History,
			Tier:       req.Tier,
		},
		SkipCache: req.SkipCache,
	}
}

// sanitizeLogValue replaces control characters so request-derived strings
// cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}
