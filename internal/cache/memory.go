// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package cache

import (
	"sync"
	"time"

	"github.com/kratos0002/lit-finder/internal/models"
)

// entry is a cached result with its expiration time.
type entry struct {
	result    *models.AggregateResult
	expiresAt time.Time
}

// Memory is a thread-safe in-memory cache with TTL expiration.
//
// Expired entries are removed lazily on Get and swept by a background
// cleanup goroutine every 5 minutes. A later Set for the same key
// overwrites the previous entry (last write wins).
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stats   Stats
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory store with the given default TTL and
// starts the background cleanup goroutine.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get retrieves a cached result. Expired entries are deleted and counted
// as misses.
func (m *Memory) Get(key string) (*models.AggregateResult, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.stats.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := m.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(m.entries, key)
			m.stats.recordEviction()
		}
		m.mu.Unlock()
		m.stats.recordMiss()
		return nil, false
	}

	m.stats.recordHit()
	return e.result, true
}

// Set stores a result with the default TTL.
func (m *Memory) Set(key string, result *models.AggregateResult) {
	m.SetWithTTL(key, result, m.ttl)
}

// SetWithTTL stores a result with a custom TTL.
func (m *Memory) SetWithTTL(key string, result *models.AggregateResult, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()
}

// Delete removes a cached result.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear removes all entries.
func (m *Memory) Clear() error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

// GetStats returns a snapshot of the cache counters.
func (m *Memory) GetStats() StatsSnapshot {
	snap := m.stats.snapshot()
	m.mu.RLock()
	snap.TotalKeys = int64(len(m.entries))
	m.mu.RUnlock()
	return snap
}

// HitRate returns the hit rate as a percentage.
func (m *Memory) HitRate() float64 {
	return m.stats.hitRate()
}

// Close stops the background cleanup goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// cleanupLoop sweeps expired entries periodically so keys that are never
// read again do not accumulate.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()
	m.mu.Lock()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			m.stats.recordEviction()
		}
	}
	m.mu.Unlock()
}
