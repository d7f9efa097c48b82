package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/quickrag/ai"
	"google.golang.org/api/option"
)

// Embedder implements ai.Embedder with Gemini batch embeddings.
type Embedder struct {
	client *lazyClient
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates a Gemini embedder. Extra client options are appended
// after the API key, which lets tests point the client at a fake endpoint.
func NewEmbedder(config *ai.GeminiConfig, opts ...option.ClientOption) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Embedder{
		client: &lazyClient{apiKey: config.APIKey, opts: opts},
		model:  config.Model,
		logger: slog.Default().With("component", "gemini-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts sends all texts in one batch request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	client, err := e.client.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	em := client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts), "model", e.model)
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingMismatch, len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		out = append(out, emb.Values)
	}
	return out, nil
}

// Close releases the underlying client if one was created.
func (e *Embedder) Close() error {
	return e.client.close()
}
