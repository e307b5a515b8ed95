// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/metrics"
	"github.com/kratos0002/lit-finder/internal/models"
	"github.com/kratos0002/lit-finder/internal/providers"
)

// CallFunc performs one provider call under breaker protection.
type CallFunc func(ctx context.Context) (*models.ProviderResult, error)

// FallbackFunc produces the result Execute returns when the protected
// call cannot deliver one: short-circuited, timed out, or failed. The
// error describes what went wrong.
type FallbackFunc func(err error) *models.ProviderResult

// errInterrupted marks calls cut short by the request's tier budget or
// the caller, rather than by the provider's own per-call timer. These
// are neutral for trip accounting: the provider did not misbehave.
var errInterrupted = errors.New("call interrupted by request deadline")

// Breaker guards a single provider. One instance is shared by all
// concurrent requests so failures observed by any request count toward
// the same trip decision.
//
// Execute never surfaces an error: every failure mode resolves to the
// registered fallback result, and the orchestrator decides what an
// empty contribution means.
//
// DETERMINISM NOTE: recovery timing uses real time via sony/gobreaker.
// Tests exercise it with short recovery timeouts rather than mocking.
type Breaker struct {
	name        string
	callTimeout time.Duration
	fallback    FallbackFunc
	cb          *gobreaker.CircuitBreaker[*models.ProviderResult]
}

// New creates a breaker for the named provider.
//
// Behavior:
//   - Opens after cfg.FailureThreshold consecutive failures
//   - While open, calls are rejected without touching the provider
//   - After cfg.RecoveryTimeout, exactly one probe is admitted
//     (MaxRequests: 1); success closes the breaker, failure reopens it
//   - Calls interrupted by the request deadline do not count as failures
//
// A nil fallback defaults to an empty result.
func New(name string, callTimeout time.Duration, cfg config.BreakerConfig, fallback FallbackFunc) *Breaker {
	if fallback == nil {
		fallback = func(error) *models.ProviderResult { return &models.ProviderResult{} }
	}

	// Initialize state metrics so the series exist before the first call
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.ProviderResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // single half-open probe
		Timeout:     cfg.RecoveryTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if shouldTrip {
				logging.Warn().
					Str("provider", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Interrupted calls are neutral: the tier budget or the caller
		// expired, not the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errInterrupted)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().
				Str("provider", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &Breaker{
		name:        name,
		callTimeout: callTimeout,
		fallback:    fallback,
		cb:          cb,
	}
}

// Execute runs fn under breaker protection with the provider's per-call
// timeout applied. The timeout is independent of any deadline carried by
// ctx; whichever expires first cancels the call.
//
// Execute never returns an error. When the call is rejected by an open
// breaker, times out, fails in transport, answers with an unusable
// payload, or is interrupted by the request deadline, the registered
// fallback result is returned instead. Only the provider's own failures
// (transport, malformed, per-call timeout) count toward the trip
// threshold.
func (b *Breaker) Execute(ctx context.Context, fn CallFunc) *models.ProviderResult {
	start := time.Now()

	result, err := b.cb.Execute(func() (*models.ProviderResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		res, callErr := fn(callCtx)
		if callErr != nil {
			switch {
			case ctx.Err() != nil:
				// The surrounding deadline fired, not the per-call timer.
				return nil, fmt.Errorf("%w: %v", errInterrupted, callErr)
			case errors.Is(callErr, context.DeadlineExceeded):
				return nil, providers.ErrProviderTimeout
			}
		}
		return res, callErr
	})
	if err == nil {
		metrics.RecordProviderRequest(b.name, "success", time.Since(start))
		return result
	}

	duration := time.Since(start)
	outcome := classifyOutcome(err)

	switch outcome {
	case "rejected":
		// Short-circuited; no provider call happened, so no duration sample.
		metrics.ProviderRequestsTotal.WithLabelValues(b.name, outcome).Inc()
		logging.Debug().Str("provider", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
	case "interrupted":
		metrics.RecordProviderRequest(b.name, outcome, duration)
		logging.Debug().
			Str("provider", b.name).
			Dur("duration", duration).
			Msg("Provider call interrupted by request deadline")
	default:
		metrics.RecordProviderRequest(b.name, outcome, duration)
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		logging.Warn().
			Err(err).
			Str("provider", b.name).
			Str("outcome", outcome).
			Dur("duration", duration).
			Msg("Provider call failed")
	}

	return b.fallback(err)
}

// Name returns the provider name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state as a string.
func (b *Breaker) State() string {
	return stateToString(b.cb.State())
}

// Counts returns the breaker's internal counters.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// classifyOutcome maps a protected-call error to a metrics outcome label.
func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case errors.Is(err, errInterrupted):
		return "interrupted"
	case errors.Is(err, providers.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, providers.ErrMalformedPayload):
		return "malformed"
	default:
		return "failure"
	}
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
