// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package services

import (
	"context"
	"time"

	"github.com/kratos0002/lit-finder/internal/breaker"
	"github.com/kratos0002/lit-finder/internal/cache"
	"github.com/kratos0002/lit-finder/internal/logging"
)

// StatsReporterService periodically logs cache statistics and circuit
// breaker states. It doubles as a watchdog: the breaker state log line is
// the operational signal that a provider has been unhealthy across
// reporting intervals.
type StatsReporterService struct {
	store    cache.Store
	registry *breaker.Registry
	interval time.Duration
	name     string
}

// NewStatsReporterService creates the reporter. A non-positive interval
// defaults to one minute.
func NewStatsReporterService(store cache.Store, registry *breaker.Registry, interval time.Duration) *StatsReporterService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsReporterService{
		store:    store,
		registry: registry,
		interval: interval,
		name:     "stats-reporter",
	}
}

// Serve implements suture.Service.
func (s *StatsReporterService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.report()
		}
	}
}

func (s *StatsReporterService) report() {
	stats := s.store.GetStats()
	evt := logging.Info().
		Int64("cache_hits", stats.Hits).
		Int64("cache_misses", stats.Misses).
		Float64("cache_hit_rate", s.store.HitRate()).
		Int64("cache_keys", stats.TotalKeys)

	for name, state := range s.registry.States() {
		evt = evt.Str("breaker_"+name, state)
	}
	evt.Msg("Service statistics")
}

// String implements fmt.Stringer for supervisor log messages.
func (s *StatsReporterService) String() string {
	return s.name
}
