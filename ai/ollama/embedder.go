package ollama

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/quickrag/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Embedder implements ai.Embedder against a self-hosted Ollama server.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.OllamaConfig) (*Embedder, error) {
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

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		model:    config.Model,
		logger:   slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder for the Ollama server in config.
// The server is not contacted until the first call.
func NewEmbedder(config *ai.OllamaConfig) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "model", e.model, "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts), "model", e.model)

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingMismatch, len(texts), len(vectors))
	}
	return vectors, nil
}
