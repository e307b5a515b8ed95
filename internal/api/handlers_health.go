// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package api

import (
	"net/http"
	"time"

	"github.com/kratos0002/lit-finder/internal/models"
)

// HealthLive handles GET /api/v1/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "alive"},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady handles GET /api/v1/health/ready: readiness with cache
// statistics and per-provider breaker states. The service stays ready
// with open breakers; the fallback generator guarantees answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	states := h.registry.States()

	degraded := make([]string, 0)
	for name, state := range states {
		if state != "closed" {
			degraded = append(degraded, name)
		}
	}

	status := "ready"
	if len(degraded) == len(states) && len(states) > 0 {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":    status,
			"providers": states,
			"cache":     h.engine.CacheStats(),
			"tiers":     h.engine.Tiers().Names(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// Providers handles GET /api/v1/providers: breaker state and counters per
// provider, for dashboards and debugging.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	states := h.registry.States()

	providers := make(map[string]interface{}, len(states))
	for name, state := range states {
		entry := map[string]interface{}{"state": state}
		if br, ok := h.registry.Get(name); ok {
			counts := br.Counts()
			entry["requests"] = counts.Requests
			entry["total_failures"] = counts.TotalFailures
			entry["consecutive_failures"] = counts.ConsecutiveFailures
		}
		providers[name] = entry
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]interface{}{"providers": providers},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
