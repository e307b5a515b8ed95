// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

// Package config provides layered configuration using koanf v2.
//
// Configuration is resolved in three layers with increasing precedence:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML config file (config.yaml, /etc/litfinder/config.yaml,
//     or the path named by CONFIG_PATH)
//  3. Environment variables (PERPLEXITY_API_KEY, HTTP_PORT, ...)
//
// The resulting Config is validated before use: every tier must reference
// known providers, budgets must be positive, and the cache backend must be
// one of the supported types.
package config
