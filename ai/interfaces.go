package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text completions from a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the model's completion for prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	// Temperature controls sampling randomness, 0 to 1.
	Temperature float64

	// SystemPrompt is sent ahead of the prompt when the provider supports it.
	SystemPrompt string
}
