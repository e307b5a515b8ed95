// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package config

import (
	"fmt"
)

// Validate checks the configuration for internal consistency. Called by
// Load after all layers are merged.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateTiers(); err != nil {
		return err
	}
	return c.validateAPI()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Type {
	case "memory":
	case "badger":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required when cache.type is badger")
		}
	default:
		return fmt.Errorf("cache.type must be memory or badger, got %q", c.Cache.Type)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive")
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		return fmt.Errorf("breaker.recovery_timeout must be positive, got %s", c.Breaker.RecoveryTimeout)
	}
	return nil
}

func (c *Config) validateTiers() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one tier must be configured")
	}
	for name, tier := range c.Tiers {
		if tier.Budget <= 0 {
			return fmt.Errorf("tiers.%s.budget must be positive, got %s", name, tier.Budget)
		}
		if len(tier.Providers) == 0 {
			return fmt.Errorf("tiers.%s.providers must not be empty", name)
		}
		for _, p := range tier.Providers {
			if _, ok := knownProviders[p]; !ok {
				return fmt.Errorf("tiers.%s references unknown provider %q", name, p)
			}
		}
		if tier.SecondPass != "" {
			if _, ok := knownProviders[tier.SecondPass]; !ok {
				return fmt.Errorf("tiers.%s.second_pass references unknown provider %q", name, tier.SecondPass)
			}
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultTier == "" {
		return fmt.Errorf("api.default_tier must not be empty")
	}
	if _, ok := c.Tiers[c.API.DefaultTier]; !ok {
		return fmt.Errorf("api.default_tier %q is not a configured tier", c.API.DefaultTier)
	}
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitRequests <= 0 {
			return fmt.Errorf("api.rate_limit_requests must be positive, got %d", c.API.RateLimitRequests)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("api.rate_limit_window must be positive, got %s", c.API.RateLimitWindow)
		}
	}
	return nil
}
