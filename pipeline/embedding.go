package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/core"
	"golang.org/x/time/rate"
)

// Embedding stage defaults.
const (
	DefaultEmbedBatchSize = 32
	DefaultEmbedWorkers   = 4
	defaultRetryDelay     = 500 * time.Millisecond
)

// EmbeddingStage attaches unit-length embeddings to documents. It is built
// per request by BuildEmbedder and carries that request's provider
// configuration; it keeps no state between Process calls.
type EmbeddingStage struct {
	config      ai.ProviderConfig
	embedder    ai.Embedder
	closer      io.Closer
	batchSize   int
	workers     int
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	progress    Progress
	breakers    *ai.Breakers
	logger      *slog.Logger
}

var _ Processor = (*EmbeddingStage)(nil)

// EmbeddingOption configures an EmbeddingStage.
type EmbeddingOption func(*EmbeddingStage)

// WithBatchSize sets how many documents are sent per embedding call.
func WithBatchSize(n int) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are embedded concurrently.
func WithWorkers(n int) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRetry retries failed embedding calls with exponential backoff.
// The default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			s.retryDelay = baseDelay
		}
	}
}

// WithRateLimit caps embedding calls per second across all workers.
func WithRateLimit(perSecond float64, burst int) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithProgress reports embedded chunk counts to p.
func WithProgress(p Progress) EmbeddingOption {
	return func(s *EmbeddingStage) {
		s.progress = p
	}
}

// WithBreakers makes BuildEmbedder guard the provider with the shared
// circuit breaker for its upstream instead of a private one.
func WithBreakers(b *ai.Breakers) EmbeddingOption {
	return func(s *EmbeddingStage) {
		s.breakers = b
	}
}

// WithEmbeddingLogger sets the stage logger.
func WithEmbeddingLogger(logger *slog.Logger) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEmbeddingStage wraps embedder. config describes the provider in the
// persisted pipeline definition.
func NewEmbeddingStage(config ai.ProviderConfig, embedder ai.Embedder, opts ...EmbeddingOption) (*EmbeddingStage, error) {
	if config == nil || embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := &EmbeddingStage{
		config:      config,
		embedder:    embedder,
		batchSize:   DefaultEmbedBatchSize,
		workers:     DefaultEmbedWorkers,
		maxAttempts: 1,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default().With("component", "embedding-stage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("provider", config.Provider().String())
	return s, nil
}

// Provider returns the provider the stage embeds with.
func (s *EmbeddingStage) Provider() core.Provider {
	return s.config.Provider()
}

// Config returns the validated provider configuration.
func (s *EmbeddingStage) Config() ai.ProviderConfig {
	return s.config
}

// Spec implements Component. Credentials are redacted.
func (s *EmbeddingStage) Spec() ComponentSpec {
	params := map[string]any{
		"provider":   s.config.Provider().String(),
		"batch_size": s.batchSize,
	}
	for k, v := range s.config.Describe() {
		params[k] = v
	}
	return ComponentSpec{
		Type:   strings.ToLower(s.config.Provider().String()) + ".DocumentEmbedder",
		Params: params,
	}
}

// Process returns copies of docs with normalized embeddings. Batches run
// concurrently on a worker pool; the first failure cancels the rest.
func (s *EmbeddingStage) Process(ctx context.Context, docs []*core.Document) ([]*core.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*core.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	if s.progress != nil {
		s.progress.Start(len(out))
		defer s.progress.Finish()
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(out); start += s.batchSize {
		batch := out[start:min(start+s.batchSize, len(out))]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := s.embedBatch(ctx, batch); err != nil {
				fail(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr == nil {
		firstErr = parent.Err()
	}
	if firstErr != nil {
		s.logger.Error("embedding failed", "documents", len(out), "err", firstErr)
		return nil, firstErr
	}
	s.logger.Debug("documents embedded", "documents", len(out))
	return out, nil
}

func (s *EmbeddingStage) embedBatch(ctx context.Context, batch []*core.Document) error {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		vectors, err = s.embedder.EmbedTexts(ctx, texts)
		return err
	}, s.maxAttempts, s.retryDelay)
	if err != nil {
		return fmt.Errorf("embed batch of %d: %w", len(batch), err)
	}

	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingMismatch, len(batch), len(vectors))
	}

	for i, doc := range batch {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("%w: empty vector for document %s", ai.ErrEmbeddingMismatch, doc.ID)
		}
		doc.Embedding = NormalizeVector(vectors[i])
	}

	if s.progress != nil {
		s.progress.Increment(len(batch))
	}
	return nil
}

// EmbedQuery embeds a single question with the same normalization as documents.
func (s *EmbeddingStage) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = s.embedder.EmbedText(ctx, text)
		return err
	}, s.maxAttempts, s.retryDelay)
	if err != nil {
		return nil, err
	}
	return NormalizeVector(vector), nil
}

// Close releases provider resources held by the stage.
func (s *EmbeddingStage) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
