// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package logging provides centralized zerolog-based logging for litfinder.
//
// All packages log through the global logger configured here. JSON output is
// the default; console output is available for development. Request and
// correlation IDs are propagated through context so that every log line
// emitted while serving a request can be tied back to it.
package logging
