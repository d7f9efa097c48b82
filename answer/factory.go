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

package answer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/ai/gemini"
	"github.com/poiesic/quickrag/ai/ollama"
	"github.com/poiesic/quickrag/ai/openai"
	"github.com/poiesic/quickrag/core"
)

type generatorConstructor func(cfg ai.ProviderConfig) (ai.Generator, error)

var generatorConstructors = map[core.Provider]generatorConstructor{
	core.ProviderOpenAI: func(cfg ai.ProviderConfig) (ai.Generator, error) {
		return openai.NewGenerator(cfg.(*ai.OpenAIConfig))
	},
	core.ProviderOllama: func(cfg ai.ProviderConfig) (ai.Generator, error) {
		return ollama.NewGenerator(cfg.(*ai.OllamaConfig))
	},
	core.ProviderGemini: func(cfg ai.ProviderConfig) (ai.Generator, error) {
		g, err := gemini.NewGenerator(cfg.(*ai.GeminiConfig))
		if err != nil {
			return nil, err
		}
		return g, nil
	},
}

// LLM is a provider generator built for one request.
type LLM struct {
	config    ai.ProviderConfig
	generator ai.Generator
	closer    io.Closer
}

var _ ai.Generator = (*LLM)(nil)

// GeneratorOption configures BuildGenerator.
type GeneratorOption func(*generatorOptions)

type generatorOptions struct {
	breakers *ai.Breakers
}

// WithBreakers guards the generator with the shared circuit breaker for
// its upstream instead of a private one.
func WithBreakers(b *ai.Breakers) GeneratorOption {
	return func(o *generatorOptions) {
		o.breakers = b
	}
}

// BuildGenerator validates args for provider the same way embedding
// arguments are validated and returns a generator behind a circuit breaker.
// Construction performs no network I/O.
func BuildGenerator(provider core.Provider, args map[string]string, opts ...GeneratorOption) (*LLM, error) {
	var options generatorOptions
	for _, opt := range opts {
		opt(&options)
	}

	constructor, ok := generatorConstructors[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no generator for %s", core.ErrUnknownProvider, provider)
	}

	cfg, err := ai.ParseArgs(provider, args)
	if err != nil {
		return nil, err
	}

	generator, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s generator: %w", provider, err)
	}

	breakers := options.breakers
	if breakers == nil {
		breakers = ai.NewBreakers(ai.BreakerConfig{}, slog.Default().With("component", "answerer"))
	}
	llm := &LLM{
		config:    cfg,
		generator: breakers.Generator(ai.BreakerKey(cfg), generator),
	}
	if c, ok := generator.(io.Closer); ok {
		llm.closer = c
	}
	return llm, nil
}

// Generate implements ai.Generator.
func (l *LLM) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	return l.generator.Generate(ctx, prompt, opts)
}

// Config returns the validated provider configuration.
func (l *LLM) Config() ai.ProviderConfig {
	return l.config
}

// Close releases provider resources.
func (l *LLM) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
