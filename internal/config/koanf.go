// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order for an optional YAML config file.
var DefaultConfigPaths = []string{
	"config.yaml",
	"/etc/litfinder/config.yaml",
}

// Load builds the Config from three layers with increasing precedence:
// built-in defaults, an optional YAML file, and environment variables.
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; split known slice fields on commas.
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are config paths parsed as comma-separated slices when
// they arrive from environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"tiers.fast.providers",
	"tiers.standard.providers",
	"tiers.comprehensive.providers",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to config paths. Unmapped
// variables are ignored so unrelated process environment never leaks into
// the configuration.
var envMappings = map[string]string{
	// Server
	"http_host":               "server.host",
	"http_port":               "server.port",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Cache
	"cache_type":         "cache.type",
	"cache_path":         "cache.path",
	"cache_ttl":          "cache.ttl",
	"cache_personalized": "cache.personalized",

	// Circuit breaker
	"breaker_failure_threshold": "breaker.failure_threshold",
	"breaker_recovery_timeout":  "breaker.recovery_timeout",

	// Providers
	"perplexity_enabled": "providers.perplexity.enabled",
	"perplexity_url":     "providers.perplexity.url",
	"perplexity_api_key": "providers.perplexity.api_key",
	"perplexity_model":   "providers.perplexity.model",
	"perplexity_timeout": "providers.perplexity.timeout",
	"openai_enabled":     "providers.openai.enabled",
	"openai_url":         "providers.openai.url",
	"openai_api_key":     "providers.openai.api_key",
	"openai_model":       "providers.openai.model",
	"openai_timeout":     "providers.openai.timeout",
	"claude_enabled":     "providers.claude.enabled",
	"claude_url":         "providers.claude.url",
	"claude_api_key":     "providers.claude.api_key",
	"claude_model":       "providers.claude.model",
	"claude_timeout":     "providers.claude.timeout",
	// Anthropic's conventional variable name for the same key
	"anthropic_api_key": "providers.claude.api_key",

	// API
	"api_rate_limit_requests": "api.rate_limit_requests",
	"api_rate_limit_window":   "api.rate_limit_window",
	"api_rate_limit_disabled": "api.rate_limit_disabled",
	"api_cors_origins":        "api.cors_origins",
	"api_default_tier":        "api.default_tier",
}

// envTransformFunc maps an environment variable name to its koanf config
// path, or "" to ignore it.
//
// Examples:
//   - PERPLEXITY_API_KEY -> providers.perplexity.api_key
//   - HTTP_PORT          -> server.port
//   - CACHE_TTL          -> cache.ttl
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
