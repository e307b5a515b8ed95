// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package cache provides the recommendation result cache.
//
// Two backends implement the Store interface: an in-memory TTL map for
// single-instance deployments and a Badger-backed store that survives
// restarts. Keys are content fingerprints derived from the normalized
// search term and tier (see Fingerprint), so trivially different spellings
// of the same query share one cache slot.
package cache
