// Copyright 2025 Vitrine AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embed

import (
	"strings"
	"time"
)

// Provider selects the embedding strategy.
type Provider string

const (
	// ProviderDeterministic is the reproducible hash-based transform.
	ProviderDeterministic Provider = "deterministic"

	// ProviderHTTP posts text to an OpenAI-compatible endpoint.
	ProviderHTTP Provider = "http"
)

// Config holds configuration for embedding providers.
type Config struct {
	// Provider selects which embedding strategy to build. The selection
	// happens once, in NewEmbedder; nothing re-checks it per call.
	Provider Provider

	// Dimension is the vector length produced by the deterministic provider.
	Dimension int

	// Host is the base URL for the HTTP provider.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server.
	Host string

	// Model is the model identifier for the HTTP provider.
	Model string

	// Timeout is the hard abort deadline for HTTP embedding calls.
	Timeout time.Duration

	// MaxAttempts bounds the retry loop around either provider.
	MaxAttempts int

	// RetryDelay is the base delay for linear backoff (attempt * RetryDelay).
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the embedding strategy.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithDimension sets the deterministic vector dimension.
func WithDimension(d int) ConfigOption {
	return func(c *Config) {
		c.Dimension = d
	}
}

// WithHost sets the HTTP embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the HTTP embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout sets the hard abort deadline for HTTP calls.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxAttempts sets the retry attempt limit.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryDelay sets the base delay for linear backoff.
func WithRetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// DefaultConfig returns a Config with sensible defaults: the deterministic
// provider at 256 dimensions, three attempts, 200ms base delay.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderDeterministic,
		Dimension:   256,
		Host:        "http://localhost:11434/v1",
		Model:       "embeddinggemma",
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  200 * time.Millisecond,
	}
}

// NewConfig creates a Config with default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form. The /v1 suffix is
// required by OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete for the
// selected provider. It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderDeterministic:
		if c.Dimension <= 0 {
			return ErrInvalidDimension
		}
	case ProviderHTTP:
		if c.Host == "" {
			return ErrHostRequired
		}
		if c.Model == "" {
			return ErrModelRequired
		}
		if c.Timeout <= 0 {
			return ErrInvalidTimeout
		}
	default:
		return ErrUnknownProvider
	}

	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	return nil
}
