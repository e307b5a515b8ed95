// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package providers contains the upstream recommendation adapters:
// Perplexity (books, reviews, social discussion), Claude (books with
// literary commentary) and OpenAI (second-pass discovery that excludes
// already-known titles).
//
// Upstream models answer in prose and only approximately honor "JSON
// only" instructions, so every adapter funnels responses through a
// tolerant extraction chain (see ExtractArray) before normalizing items
// into models.Recommendation. An answer that survives no extraction
// strategy is reported as ErrMalformedPayload and counts against the
// provider's circuit breaker exactly like a timeout.
package providers
