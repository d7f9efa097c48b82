// Copyright 2025 Poiesic Systems
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

package ai

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/poiesic/quickrag/core"
)

// Argument keys accepted from callers.
const (
	ArgAPIKey = "api_key"
	ArgURL    = "url"
	ArgModel  = core.ArgModel
)

// Redacted replaces secrets in descriptions of a configuration.
const Redacted = "redacted"

// DefaultOpenAIBaseURL is used when an OpenAI configuration has no URL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// ProviderConfig is the validated, provider-specific configuration for
// building an embedder or generator.
type ProviderConfig interface {
	// Provider returns the provider this configuration belongs to.
	Provider() core.Provider

	// Validate checks that the configuration is complete.
	Validate() error

	// Describe returns the configuration as parameters safe to persist.
	// Secrets are replaced by Redacted.
	Describe() map[string]string
}

// OpenAIConfig configures the OpenAI API or a compatible endpoint.
type OpenAIConfig struct {
	// APIKey authenticates against the API.
	APIKey string

	// Model is the model identifier.
	// Example: "text-embedding-3-small", "gpt-4o-mini"
	Model string

	// BaseURL overrides the API endpoint. Empty means DefaultOpenAIBaseURL.
	BaseURL string
}

// Provider implements ProviderConfig.
func (c *OpenAIConfig) Provider() core.Provider { return core.ProviderOpenAI }

// Validate implements ProviderConfig.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("openai config: APIKey is required")
	}
	if c.Model == "" {
		return errors.New("openai config: Model is required")
	}
	return nil
}

// Describe implements ProviderConfig.
func (c *OpenAIConfig) Describe() map[string]string {
	return map[string]string{
		ArgAPIKey: Redacted,
		ArgModel:  c.Model,
		ArgURL:    c.Endpoint(),
	}
}

// Endpoint returns the configured base URL or the public default.
func (c *OpenAIConfig) Endpoint() string {
	if c.BaseURL == "" {
		return DefaultOpenAIBaseURL
	}
	return c.BaseURL
}

// OllamaConfig configures a self-hosted Ollama server.
type OllamaConfig struct {
	// URL is the server address.
	// Example: "http://localhost:11434"
	URL string

	// Model is the model identifier.
	// Example: "nomic-embed-text", "llama3.2"
	Model string
}

// Provider implements ProviderConfig.
func (c *OllamaConfig) Provider() core.Provider { return core.ProviderOllama }

// Validate implements ProviderConfig.
func (c *OllamaConfig) Validate() error {
	if c.URL == "" {
		return errors.New("ollama config: URL is required")
	}
	if c.Model == "" {
		return errors.New("ollama config: Model is required")
	}
	return nil
}

// Describe implements ProviderConfig.
func (c *OllamaConfig) Describe() map[string]string {
	return map[string]string{
		ArgModel: c.Model,
		ArgURL:   c.URL,
	}
}

// GeminiConfig configures Google's Gemini API.
type GeminiConfig struct {
	APIKey string
	Model  string // Example: "text-embedding-004", "gemini-1.5-flash"
}

// Provider implements ProviderConfig.
func (c *GeminiConfig) Provider() core.Provider { return core.ProviderGemini }

// Validate implements ProviderConfig.
func (c *GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("gemini config: APIKey is required")
	}
	if c.Model == "" {
		return errors.New("gemini config: Model is required")
	}
	return nil
}

// Describe implements ProviderConfig.
func (c *GeminiConfig) Describe() map[string]string {
	return map[string]string{
		ArgAPIKey: Redacted,
		ArgModel:  c.Model,
	}
}

var (
	_ ProviderConfig = (*OpenAIConfig)(nil)
	_ ProviderConfig = (*OllamaConfig)(nil)
	_ ProviderConfig = (*GeminiConfig)(nil)
)

// argSpec lists the argument keys a provider accepts.
type argSpec struct {
	required []string
	optional []string
}

func (s argSpec) accepts(key string) bool {
	return slices.Contains(s.required, key) || slices.Contains(s.optional, key)
}

// Hosted providers take a credential and a model; self-hosted ones take a
// service URL and a model.
var argSpecs = map[core.Provider]argSpec{
	core.ProviderOpenAI: {required: []string{ArgAPIKey, ArgModel}, optional: []string{ArgURL}},
	core.ProviderOllama: {required: []string{ArgModel, ArgURL}},
	core.ProviderGemini: {required: []string{ArgAPIKey, ArgModel}},
}

// RequiredArgs returns the argument keys provider requires, sorted.
func RequiredArgs(provider core.Provider) []string {
	return slices.Clone(argSpecs[provider].required)
}

// ParseArgs validates an argument mapping against the keys provider accepts
// and converts it into that provider's configuration struct.
//
// Checks run in a fixed order so the reported key is deterministic: missing
// required keys first, then empty required values, then keys the provider
// does not accept (each group in sorted key order), then URL syntax.
func ParseArgs(provider core.Provider, args map[string]string) (ProviderConfig, error) {
	spec, ok := argSpecs[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownProvider, provider)
	}

	for _, key := range spec.required {
		if _, present := args[key]; !present {
			return nil, &core.ArgumentError{Provider: provider, Key: key, Problem: core.ProblemMissing}
		}
	}
	for _, key := range spec.required {
		if strings.TrimSpace(args[key]) == "" {
			return nil, &core.ArgumentError{Provider: provider, Key: key, Problem: core.ProblemEmpty}
		}
	}

	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !spec.accepts(key) {
			return nil, &core.ArgumentError{Provider: provider, Key: key, Problem: core.ProblemUnexpected}
		}
	}

	if raw, present := args[ArgURL]; present && raw != "" {
		if err := checkServiceURL(raw); err != nil {
			return nil, &core.ArgumentError{Provider: provider, Key: ArgURL, Problem: err.Error()}
		}
	}

	var cfg ProviderConfig
	switch provider {
	case core.ProviderOpenAI:
		cfg = &OpenAIConfig{APIKey: args[ArgAPIKey], Model: args[ArgModel], BaseURL: args[ArgURL]}
	case core.ProviderOllama:
		cfg = &OllamaConfig{URL: args[ArgURL], Model: args[ArgModel]}
	case core.ProviderGemini:
		cfg = &GeminiConfig{APIKey: args[ArgAPIKey], Model: args[ArgModel]}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArguments, err)
	}
	return cfg, nil
}

func checkServiceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
