// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "protocol-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CacheConfig holds settings for the content-addressed cache store.
type CacheConfig struct {
	// Path is the SQLite database path (e.g. "cache/protocol-engine.db").
	Path string `json:"path" yaml:"path"`

	// TTL is the maximum entry age before it is treated as absent
	// (default 7 days).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// PubMedConfig holds settings for the PubMed Central client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// FetchTimeout is the timeout for full-text fetches, which return much
	// larger documents than searches (default 30s; Timeout covers search).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// MaxResults is the default search result cap (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// APIKey is an optional NCBI API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// SynthesisConfig holds settings for protocol synthesis.
type SynthesisConfig struct {
	// Provider selects the generative backend: openai, gemini, or anthropic.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds one generation call (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	PubMed    PubMedConfig    `json:"pubmed" yaml:"pubmed"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
}
