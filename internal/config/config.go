// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package config

import (
	"sort"
	"time"
)

// Config is the root configuration for the recommendation service.
type Config struct {
	Server    ServerConfig          `koanf:"server"`
	Logging   LoggingConfig         `koanf:"logging"`
	Cache     CacheConfig           `koanf:"cache"`
	Breaker   BreakerConfig         `koanf:"breaker"`
	Providers ProvidersConfig       `koanf:"providers"`
	Tiers     map[string]TierConfig `koanf:"tiers"`
	API       APIConfig             `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// CacheConfig holds settings for the recommendation cache.
type CacheConfig struct {
	// Type selects the backing store: "memory" or "badger".
	Type string `koanf:"type"`
	// Path is the Badger data directory. Ignored for the memory store.
	Path string        `koanf:"path"`
	TTL  time.Duration `koanf:"ttl"`
	// Personalized mixes the user ID into cache keys so users never share
	// cached result sets.
	Personalized bool `koanf:"personalized"`
}

// BreakerConfig holds circuit breaker settings shared by all providers.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens a breaker.
	FailureThreshold uint32 `koanf:"failure_threshold"`
	// RecoveryTimeout is how long an open breaker waits before allowing a
	// single half-open probe.
	RecoveryTimeout time.Duration `koanf:"recovery_timeout"`
}

// ProvidersConfig holds the upstream recommendation providers.
type ProvidersConfig struct {
	Perplexity ProviderConfig `koanf:"perplexity"`
	OpenAI     ProviderConfig `koanf:"openai"`
	Claude     ProviderConfig `koanf:"claude"`
}

// ProviderConfig holds settings for a single upstream provider.
type ProviderConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	// Timeout bounds a single call to this provider, independent of the
	// tier budget.
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit is the sustained request rate in requests per second.
	// Zero disables client-side rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// TierConfig describes one recommendation tier.
type TierConfig struct {
	// Budget is the wall-clock deadline for the whole tier.
	Budget time.Duration `koanf:"budget"`
	// Providers are fanned out concurrently within the budget.
	Providers []string `koanf:"providers"`
	// SecondPass optionally names a provider invoked after the fan-out with
	// the already-collected titles excluded. Empty disables the pass.
	SecondPass string `koanf:"second_pass"`
}

// APIConfig holds settings for the HTTP API surface.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// DefaultTier is applied when a request omits the tier field.
	DefaultTier string `koanf:"default_tier"`
}

// defaultConfig returns the built-in defaults, the lowest-precedence
// configuration layer.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Type:         "memory",
			Path:         "/data/litfinder-cache",
			TTL:          1 * time.Hour,
			Personalized: false,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  60 * time.Second,
		},
		Providers: ProvidersConfig{
			Perplexity: ProviderConfig{
				Enabled:   true,
				URL:       "https://api.perplexity.ai/chat/completions",
				Model:     "llama-3.1-sonar-small-128k-online",
				Timeout:   15 * time.Second,
				RateLimit: 5,
				RateBurst: 5,
			},
			OpenAI: ProviderConfig{
				Enabled:   true,
				URL:       "https://api.openai.com/v1/chat/completions",
				Model:     "gpt-4o-mini",
				Timeout:   10 * time.Second,
				RateLimit: 5,
				RateBurst: 5,
			},
			Claude: ProviderConfig{
				Enabled:   true,
				URL:       "https://api.anthropic.com/v1/messages",
				Model:     "claude-3-5-sonnet-latest",
				Timeout:   20 * time.Second,
				RateLimit: 5,
				RateBurst: 5,
			},
		},
		Tiers: map[string]TierConfig{
			"fast": {
				Budget:    5 * time.Second,
				Providers: []string{"perplexity"},
			},
			"standard": {
				Budget:    15 * time.Second,
				Providers: []string{"perplexity", "claude"},
			},
			"comprehensive": {
				Budget:     30 * time.Second,
				Providers:  []string{"perplexity", "claude"},
				SecondPass: "openai",
			},
		},
		API: APIConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			DefaultTier:       "standard",
		},
	}
}

// knownProviders is the set of provider names that tiers may reference.
var knownProviders = map[string]struct{}{
	"perplexity": {},
	"openai":     {},
	"claude":     {},
}

// TierNames returns the configured tier names in sorted order.
func (c *Config) TierNames() []string {
	names := make([]string, 0, len(c.Tiers))
	for name := range c.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider returns the configuration for the named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "perplexity":
		return c.Providers.Perplexity, true
	case "openai":
		return c.Providers.OpenAI, true
	case "claude":
		return c.Providers.Claude, true
	default:
		return ProviderConfig{}, false
	}
}
