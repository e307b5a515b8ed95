// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package models defines the domain types shared across litfinder: query
// contexts, recommendations, aggregate results, stream envelopes, and the
// standard API response wrapper.
package models
