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

// Package openai provides AI service implementations using the OpenAI API.
//
// Both the embedder and the generator are built on the langchaingo OpenAI
// client, so any OpenAI-compatible endpoint (LocalAI, vLLM, a proxy) works
// when its base URL is supplied.
//
// # Usage
//
//	cfg := &ai.OpenAIConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "text-embedding-3-small",
//	}
//
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "sample text")
package openai
