// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package breaker

import "sync"

// Registry holds the shared breaker instance for each provider. The engine
// and the API's provider status endpoint both read from it.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// Register adds a breaker, keyed by its provider name. Registering the
// same name again replaces the previous instance.
func (r *Registry) Register(b *Breaker) {
	r.mu.Lock()
	r.breakers[b.Name()] = b
	r.mu.Unlock()
}

// Get returns the breaker for the named provider.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	return b, ok
}

// States returns the current state of every registered breaker.
func (r *Registry) States() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}
