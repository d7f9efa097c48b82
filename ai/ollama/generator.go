package ollama

import (
	"context"
	"log/slog"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/ai/internal/chat"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Generator implements ai.Generator using Ollama's chat API.
type Generator struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a chat generator for the Ollama server in config.
func NewGenerator(config *ai.OllamaConfig) (ai.Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.URL),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		model:  config.Model,
		logger: slog.Default().With("component", "ollama-generator"),
	}, nil
}

// Generate returns the model's completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	answer, err := chat.Generate(ctx, g.client, prompt, opts)
	if err != nil {
		g.logger.Error("failed to generate completion", "model", g.model, "err", err)
		return "", err
	}
	return answer, nil
}
