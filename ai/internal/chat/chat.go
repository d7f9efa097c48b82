// Package chat runs single-turn completions against langchaingo models.
package chat

import (
	"context"
	"strings"

	"github.com/poiesic/quickrag/ai"
	"github.com/tmc/langchaingo/llms"
)

// Generate sends an optional system prompt and a human prompt to model and
// returns the first choice.
func Generate(ctx context.Context, model llms.Model, prompt string, opts ai.GenerateOptions) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if opts.SystemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(opts.SystemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	response, err := model.GenerateContent(ctx, content, llms.WithTemperature(opts.Temperature))
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyCompletion
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
