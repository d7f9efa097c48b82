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

package pipeline

import (
	"fmt"
	"io"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/ai/gemini"
	"github.com/poiesic/quickrag/ai/ollama"
	"github.com/poiesic/quickrag/ai/openai"
	"github.com/poiesic/quickrag/core"
)

// embedderConstructor builds a provider client from its validated config.
// Constructors must not perform network I/O.
type embedderConstructor func(cfg ai.ProviderConfig) (ai.Embedder, error)

// embedderConstructors holds one entry per core.Provider.
var embedderConstructors = map[core.Provider]embedderConstructor{
	core.ProviderOpenAI: func(cfg ai.ProviderConfig) (ai.Embedder, error) {
		return openai.NewEmbedder(cfg.(*ai.OpenAIConfig))
	},
	core.ProviderOllama: func(cfg ai.ProviderConfig) (ai.Embedder, error) {
		return ollama.NewEmbedder(cfg.(*ai.OllamaConfig))
	},
	core.ProviderGemini: func(cfg ai.ProviderConfig) (ai.Embedder, error) {
		e, err := gemini.NewEmbedder(cfg.(*ai.GeminiConfig))
		if err != nil {
			return nil, err
		}
		return e, nil
	},
}

// BuildEmbedder validates args for provider and returns a fresh embedding
// stage. Missing, empty or unexpected keys fail with a *core.ArgumentError.
// The provider client is wrapped in a circuit breaker, shared across stages
// when WithBreakers is given. Nothing is sent over the network until the
// stage first runs.
func BuildEmbedder(provider core.Provider, args map[string]string, opts ...EmbeddingOption) (*EmbeddingStage, error) {
	constructor, ok := embedderConstructors[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no embedder for %s", core.ErrUnknownProvider, provider)
	}

	cfg, err := ai.ParseArgs(provider, args)
	if err != nil {
		return nil, err
	}

	embedder, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s embedder: %w", provider, err)
	}

	stage, err := NewEmbeddingStage(cfg, embedder, opts...)
	if err != nil {
		return nil, err
	}
	breakers := stage.breakers
	if breakers == nil {
		breakers = ai.NewBreakers(ai.BreakerConfig{}, stage.logger)
	}
	stage.embedder = breakers.Embedder(ai.BreakerKey(cfg), embedder)
	if c, ok := embedder.(io.Closer); ok {
		stage.closer = c
	}
	return stage, nil
}
