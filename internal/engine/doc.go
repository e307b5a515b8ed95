// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package engine orchestrates recommendation requests across the upstream
// providers.
//
// A request resolves to a tier (fast, standard, comprehensive), which fixes
// the wall-clock budget and the provider fan-out. Results merge in arrival
// order with (title, author) deduplication; the comprehensive tier then
// runs a second discovery pass excluding everything already collected.
// Cache lookups happen before any provider call, and when every provider
// fails the deterministic fallback generator guarantees a non-empty answer
// that is never cached.
//
// The same execution path backs both one-shot requests (Recommend) and
// progressive streams (Stream); a stream is the one-shot flow with a
// fragment emitted at every provider arrival.
package engine
