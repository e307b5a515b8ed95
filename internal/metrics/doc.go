// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package metrics provides Prometheus instrumentation for litfinder:
// provider call outcomes and latency, circuit breaker state, cache
// efficiency, API request metrics, and streaming activity.
package metrics
