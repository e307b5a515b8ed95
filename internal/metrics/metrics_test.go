// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather finds a metric family by name in the default registry.
func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestRecordProviderRequest(t *testing.T) {
	RecordProviderRequest("perplexity", "success", 250*time.Millisecond)

	mf := gather(t, "provider_requests_total")
	if mf == nil {
		t.Fatal("provider_requests_total not registered")
	}

	found := false
	for _, m := range mf.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["provider"] == "perplexity" && labels["outcome"] == "success" {
			found = true
			if m.GetCounter().GetValue() < 1 {
				t.Error("expected counter >= 1")
			}
		}
	}
	if !found {
		t.Error("expected perplexity/success series")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("POST", "/api/v1/recommendations", "200", 10*time.Millisecond)

	if mf := gather(t, "api_requests_total"); mf == nil {
		t.Fatal("api_requests_total not registered")
	}
	if mf := gather(t, "api_request_duration_seconds"); mf == nil {
		t.Fatal("api_request_duration_seconds not registered")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	TrackActiveRequest(true)
	TrackActiveRequest(false)

	mf := gather(t, "api_active_requests")
	if mf == nil {
		t.Fatal("api_active_requests not registered")
	}
}

func TestBreakerGauges(t *testing.T) {
	CircuitBreakerState.WithLabelValues("claude").Set(2)
	CircuitBreakerConsecutiveFailures.WithLabelValues("claude").Set(3)

	mf := gather(t, "circuit_breaker_state")
	if mf == nil {
		t.Fatal("circuit_breaker_state not registered")
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetValue() == "claude" && m.GetGauge().GetValue() != 2 {
				t.Errorf("expected state gauge 2, got %v", m.GetGauge().GetValue())
			}
		}
	}
}
