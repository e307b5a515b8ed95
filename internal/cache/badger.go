// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package cache

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
)

// keyPrefix namespaces recommendation entries inside the Badger keyspace.
const keyPrefix = "rec:"

// Badger is a persistent cache backed by BadgerDB. Entries are stored as
// JSON with Badger's native per-entry TTL, so expired results vanish
// without an application-level sweep.
type Badger struct {
	db    *badger.DB
	ttl   time.Duration
	stats Stats
}

// NewBadger opens (or creates) the Badger database at path.
func NewBadger(path string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logger is too chatty for our output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %s: %w", path, err)
	}

	logging.Debug().Str("path", path).Dur("ttl", ttl).Msg("Badger cache opened")
	return &Badger{db: db, ttl: ttl}, nil
}

// Get retrieves a cached result. Badger drops expired entries itself, so
// a missing key covers both "never stored" and "expired".
func (b *Badger) Get(key string) (*models.AggregateResult, bool) {
	var result models.AggregateResult

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Msg("Badger cache read failed")
		}
		b.stats.recordMiss()
		return nil, false
	}

	b.stats.recordHit()
	return &result, true
}

// Set stores a result with the default TTL.
func (b *Badger) Set(key string, result *models.AggregateResult) {
	b.SetWithTTL(key, result, b.ttl)
}

// SetWithTTL stores a result with a custom TTL.
func (b *Badger) SetWithTTL(key string, result *models.AggregateResult, ttl time.Duration) {
	data, err := json.Marshal(result)
	if err != nil {
		logging.Warn().Err(err).Msg("Badger cache marshal failed")
		return
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Badger cache write failed")
	}
}

// Delete removes a cached result.
func (b *Badger) Delete(key string) {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logging.Warn().Err(err).Msg("Badger cache delete failed")
	}
}

// Clear removes all cached results.
func (b *Badger) Clear() error {
	return b.db.DropPrefix([]byte(keyPrefix))
}

// GetStats returns a snapshot of the cache counters.
func (b *Badger) GetStats() StatsSnapshot {
	snap := b.stats.snapshot()

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			snap.TotalKeys++
		}
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Badger cache stats scan failed")
	}
	return snap
}

// HitRate returns the hit rate as a percentage.
func (b *Badger) HitRate() float64 {
	return b.stats.hitRate()
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}
