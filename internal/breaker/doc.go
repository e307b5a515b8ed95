// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package breaker wraps provider calls with per-provider circuit breakers
// built on sony/gobreaker.
//
// Each provider gets one breaker shared by every concurrent request. A
// breaker opens after a configured run of consecutive failures, short-
// circuits calls while open, and admits exactly one probe after the
// recovery timeout. Callers never see breaker errors: a rejected or failed
// call yields an empty result set and a degraded flag, and the engine
// substitutes fallback content.
package breaker
