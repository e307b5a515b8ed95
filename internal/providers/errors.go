// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package providers

import "errors"

// Sentinel errors returned by provider adapters. All three count as
// failures toward a provider's circuit breaker: a provider that returns
// well-formed garbage is as unavailable as one that refuses connections.
var (
	// ErrProviderTimeout indicates the provider did not answer within its
	// configured per-call timeout.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderTransport indicates a connection or HTTP-level failure
	// (refused connection, 5xx, unreadable body).
	ErrProviderTransport = errors.New("provider transport failure")

	// ErrMalformedPayload indicates the provider answered but no usable
	// recommendation payload could be extracted from the response.
	ErrMalformedPayload = errors.New("malformed provider payload")
)
