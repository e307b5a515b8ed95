// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import (
	"context"
	"time"

	"github.com/kratos0002/lit-finder/internal/models"
)

// Provider is a single upstream recommendation source.
type Provider interface {
	// Name returns the provider's stable identifier ("perplexity",
	// "openai", "claude"). Used for provenance, metrics and breaker keys.
	Name() string

	// Timeout returns the per-call timeout for this provider, applied by
	// the circuit breaker on top of the tier budget.
	Timeout() time.Duration

	// Fetch performs one recommendation call. known lists titles already
	// collected for this request; providers that support it exclude those
	// from their answer. Errors are one of the package sentinels, wrapped
	// with detail.
	Fetch(ctx context.Context, query models.QueryContext, known []string) (*models.ProviderResult, error)
}
