package answer

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/storage"
)

// NotFound is the answer given when no passage matches the question.
const NotFound = "I cannot find this in the document."

// Question limits.
const (
	DefaultTopK        = 1
	MaxTopK            = 5
	DefaultTemperature = 0.7
)

const (
	systemPrompt = "You are an intelligent assistant answering based only on the given document content. " +
		"If unsure, say '" + NotFound + "'"

	// verbatimBoost is added to the score of a passage containing every significant question word.
	verbatimBoost = 0.3

	// candidateFactor widens retrieval so the verbatim boost can reorder results.
	candidateFactor = 3

	passageDivider = "\n---\n"
)

// QueryEmbedder embeds a question into the vector space of the stored passages.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Question is a request for an answer grounded in stored passages.
type Question struct {
	Text string
	// TopK is the number of passages given to the model. Zero means DefaultTopK.
	TopK        int
	Temperature float64
}

// Answer is the model's reply and the passages it was given.
type Answer struct {
	Text    string
	Sources []*core.Document
}

// Answerer retrieves passages similar to a question and asks an LLM to
// answer from them.
type Answerer struct {
	store     storage.DocumentStore
	embedder  QueryEmbedder
	generator ai.Generator
	minScore  float32
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithMinScore drops passages whose similarity is below score.
// Default is 0, which keeps every passage pointing the same way as the question.
func WithMinScore(score float32) Option {
	return func(a *Answerer) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score %v outside -1..1", score)
		}
		a.minScore = score
		return nil
	}
}

// NewAnswerer creates a new answerer.
func NewAnswerer(store storage.DocumentStore, embedder QueryEmbedder, generator ai.Generator, opts ...Option) (*Answerer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	a := &Answerer{
		store:     store,
		embedder:  embedder,
		generator: generator,
		logger:    slog.Default().With("component", "answerer"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Ask answers q from the most similar stored passages. When nothing
// matches, the answer is NotFound and the generator is not called.
func (a *Answerer) Ask(ctx context.Context, q Question) (*Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	topK := q.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return nil, fmt.Errorf("%w: %d, want 1..%d", ErrInvalidTopK, q.TopK, MaxTopK)
	}
	if q.Temperature < 0 || q.Temperature > 1 {
		return nil, fmt.Errorf("%w: %v, want 0..1", ErrInvalidTemperature, q.Temperature)
	}

	vector, err := a.embedder.EmbedQuery(ctx, text)
	if err != nil {
		a.logger.Error("error generating embedding for question", "err", err)
		return nil, err
	}

	candidates, err := a.store.FindSimilar(ctx, vector, a.minScore, topK*candidateFactor)
	if err != nil {
		a.logger.Error("error querying for similar passages", "err", err)
		return nil, err
	}
	sources := rank(candidates, text, topK)
	if len(sources) == 0 {
		a.logger.Debug("no passages matched question")
		return &Answer{Text: NotFound}, nil
	}

	reply, err := a.generator.Generate(ctx, buildPrompt(sources, text), ai.GenerateOptions{
		Temperature:  q.Temperature,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		a.logger.Error("error generating answer", "passages", len(sources), "err", err)
		return nil, err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = NotFound
	}
	a.logger.Debug("question answered", "passages", len(sources))
	return &Answer{Text: reply, Sources: sources}, nil
}

// rank orders passages by similarity, boosting those that quote every
// significant question word, and keeps the best topK. Reported scores stay
// the raw similarity.
func rank(candidates []*core.Document, question string, topK int) []*core.Document {
	keys := make(map[*core.Document]float32, len(candidates))
	for _, doc := range candidates {
		key := doc.Score
		if containsAllQueryWords(doc.Content, question) {
			key += verbatimBoost
		}
		keys[doc] = key
	}
	slices.SortStableFunc(candidates, func(x, y *core.Document) int {
		return cmp.Compare(keys[y], keys[x])
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func buildPrompt(sources []*core.Document, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, doc := range sources {
		sb.WriteString(doc.Content)
		sb.WriteString(passageDivider)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
