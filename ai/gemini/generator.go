package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/quickrag/ai"
	"google.golang.org/api/option"
)

// Generator implements ai.Generator with Gemini content generation.
type Generator struct {
	client *lazyClient
	model  string
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini generator.
func NewGenerator(config *ai.GeminiConfig, opts ...option.ClientOption) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		client: &lazyClient{apiKey: config.APIKey, opts: opts},
		model:  config.Model,
		logger: slog.Default().With("component", "gemini-generator"),
	}, nil
}

// Generate returns the model's completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	client, err := g.client.get(ctx)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	m := client.GenerativeModel(g.model)
	m.SetTemperature(float32(opts.Temperature))
	if opts.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Error("failed to generate completion", "model", g.model, "err", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.ErrEmptyCompletion
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Close releases the underlying client if one was created.
func (g *Generator) Close() error {
	return g.client.close()
}
