// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package api provides the HTTP surface using the Chi router: the
// recommendation endpoint, its SSE and websocket streaming variants,
// health and provider status endpoints, and Prometheus metrics.
package api
