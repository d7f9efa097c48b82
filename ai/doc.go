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

// Package ai provides abstractions for the model providers used by QuickRAG.
//
// The package defines two service interfaces and the per-provider
// configuration they are built from:
//
//   - Embedder: generates vector embeddings from text
//   - Generator: produces answers from a prompt
//   - ProviderConfig: OpenAIConfig, OllamaConfig or GeminiConfig
//
// Callers never hand an open-ended argument map to a constructor. ParseArgs
// checks the map against the keys the provider accepts and returns the typed
// configuration, or a *core.ArgumentError naming the offending key:
//
//	cfg, err := ai.ParseArgs(core.ProviderOpenAI, map[string]string{
//	    "api_key": "sk-...",
//	    "model":   "text-embedding-3-small",
//	})
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and compatible endpoints via langchaingo
//   - ai/ollama: self-hosted Ollama via langchaingo
//   - ai/gemini: Google Gemini via the generative-ai-go SDK
//   - ai/mock: test doubles without external dependencies
//
// Constructors in the implementation packages never perform network I/O.
// Connectivity problems surface on the first call.
//
// BreakerEmbedder and BreakerGenerator wrap any implementation with a circuit
// breaker so a failing provider stops receiving traffic for a cool-down period.
package ai
