// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package middleware provides HTTP middleware: request ID propagation and
// Prometheus instrumentation. Router-level concerns (CORS, rate limiting,
// panic recovery) come from chi and its ecosystem instead.
package middleware
