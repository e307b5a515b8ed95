// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package engine

import (
	"sort"
	"time"

	"github.com/kratos0002/lit-finder/internal/config"
)

// Tier is the resolved execution plan for one request: how long the whole
// request may take and which providers are fanned out.
type Tier struct {
	Name       string
	Budget     time.Duration
	Providers  []string
	SecondPass string
}

// TierSet holds the configured tiers and the default applied when a
// request omits the tier field. Immutable after construction.
type TierSet struct {
	tiers       map[string]Tier
	defaultName string
}

// NewTierSet builds a TierSet from configuration. The default name must
// exist in cfg; config validation guarantees this.
func NewTierSet(cfg map[string]config.TierConfig, defaultName string) *TierSet {
	tiers := make(map[string]Tier, len(cfg))
	for name, tc := range cfg {
		tiers[name] = Tier{
			Name:       name,
			Budget:     tc.Budget,
			Providers:  append([]string(nil), tc.Providers...),
			SecondPass: tc.SecondPass,
		}
	}
	return &TierSet{tiers: tiers, defaultName: defaultName}
}

// Resolve returns the named tier, or the default tier for an empty name.
// Unknown names return false; request validation rejects those upstream.
func (ts *TierSet) Resolve(name string) (Tier, bool) {
	if name == "" {
		name = ts.defaultName
	}
	t, ok := ts.tiers[name]
	return t, ok
}

// Names returns the configured tier names in sorted order.
func (ts *TierSet) Names() []string {
	names := make([]string, 0, len(ts.tiers))
	for name := range ts.tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
