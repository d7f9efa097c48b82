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

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/ai/internal/chat"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using the OpenAI chat completions API.
type Generator struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(config *ai.OpenAIConfig) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Endpoint()),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		model:  config.Model,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new chat generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.OpenAIConfig) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate returns the model's completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	g.logger.Debug("generating completion", "model", g.model, "length", len(prompt), "temperature", opts.Temperature)

	answer, err := chat.Generate(ctx, g.client, prompt, opts)
	if err != nil {
		g.logger.Error("failed to generate completion", "model", g.model, "err", err)
		return "", err
	}
	return answer, nil
}
