// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package supervisor builds the suture supervision tree that keeps the
// service's long-running components alive. Components are wrapped as
// suture services and restarted with backoff when they fail.
package supervisor
