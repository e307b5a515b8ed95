// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/kratos0002/lit-finder/internal/config"
	"github.com/kratos0002/lit-finder/internal/models"
)

// Store defines the interface for recommendation cache backends.
// Both the in-memory TTL store and the Badger store implement it.
//
// Usage:
//
//	store, err := cache.NewStore(cfg.Cache)
//	store.Set(key, result)
//	if res, ok := store.Get(key); ok {
//	    // Serve cached result
//	}
type Store interface {
	// Get retrieves a cached result by fingerprint.
	// Returns the result and true if found and not expired.
	Get(key string) (*models.AggregateResult, bool)

	// Set stores a result with the default TTL.
	Set(key string, result *models.AggregateResult)

	// SetWithTTL stores a result with a custom TTL.
	SetWithTTL(key string, result *models.AggregateResult, ttl time.Duration)

	// Delete removes a cached result.
	Delete(key string)

	// Clear removes all cached results.
	Clear() error

	// GetStats returns cache statistics.
	GetStats() StatsSnapshot

	// HitRate returns the cache hit rate as a percentage.
	HitRate() float64

	// Close releases backend resources.
	Close() error
}

// Stats tracks cache performance counters.
type Stats struct {
	mu        sync.RWMutex
	Hits      int64
	Misses    int64
	Evictions int64
}

// StatsSnapshot is a point-in-time copy of the counters, safe to serialize.
type StatsSnapshot struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	TotalKeys int64 `json:"total_keys"`
}

func (s *Stats) recordHit() {
	s.mu.Lock()
	s.Hits++
	s.mu.Unlock()
}

func (s *Stats) recordMiss() {
	s.mu.Lock()
	s.Misses++
	s.mu.Unlock()
}

func (s *Stats) recordEviction() {
	s.mu.Lock()
	s.Evictions++
	s.mu.Unlock()
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
	}
}

func (s *Stats) hitRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// NewStore creates the cache backend selected by cfg.Type.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(cfg.TTL), nil
	case "badger":
		return NewBadger(cfg.Path, cfg.TTL)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
}
