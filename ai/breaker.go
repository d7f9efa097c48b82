package ai

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures circuit breaker behavior around provider calls.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial request is let through.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

func newSettings(name string, cfg BreakerConfig, logger *slog.Logger) gobreaker.Settings {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
}

func wrapBreakerError(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrCircuitOpen, name, err)
	}
	return err
}

// BreakerEmbedder wraps an Embedder with circuit breaker protection. When
// the provider fails repeatedly, calls fail fast with ErrCircuitOpen.
type BreakerEmbedder struct {
	name    string
	inner   Embedder
	breaker *gobreaker.CircuitBreaker[[][]float32]
}

var _ Embedder = (*BreakerEmbedder)(nil)

// NewBreakerEmbedder wraps inner. Zero-valued cfg fields use defaults.
func NewBreakerEmbedder(name string, inner Embedder, cfg BreakerConfig, logger *slog.Logger) *BreakerEmbedder {
	name = "embedder:" + name
	return &BreakerEmbedder{
		name:    name,
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[][]float32](newSettings(name, cfg, logger)),
	}
}

// EmbedText implements Embedder.
func (b *BreakerEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := b.breaker.Execute(func() ([][]float32, error) {
		v, err := b.inner.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	})
	if err != nil {
		return nil, wrapBreakerError(b.name, err)
	}
	return out[0], nil
}

// EmbedTexts implements Embedder.
func (b *BreakerEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := b.breaker.Execute(func() ([][]float32, error) {
		return b.inner.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return nil, wrapBreakerError(b.name, err)
	}
	return out, nil
}

// State returns the current circuit breaker state.
func (b *BreakerEmbedder) State() gobreaker.State {
	return b.breaker.State()
}

// BreakerGenerator wraps a Generator with circuit breaker protection.
type BreakerGenerator struct {
	name    string
	inner   Generator
	breaker *gobreaker.CircuitBreaker[string]
}

var _ Generator = (*BreakerGenerator)(nil)

// NewBreakerGenerator wraps inner. Zero-valued cfg fields use defaults.
func NewBreakerGenerator(name string, inner Generator, cfg BreakerConfig, logger *slog.Logger) *BreakerGenerator {
	name = "generator:" + name
	return &BreakerGenerator{
		name:    name,
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[string](newSettings(name, cfg, logger)),
	}
}

// Generate implements Generator.
func (b *BreakerGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	out, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", wrapBreakerError(b.name, err)
	}
	return out, nil
}

// State returns the current circuit breaker state.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.breaker.State()
}

// Breakers hands out circuit breakers that outlive the clients they guard.
// Embedders and generators are built per request, so the breaker for an
// upstream is looked up by key and shared by every client talking to it.
// Safe for concurrent use.
type Breakers struct {
	cfg    BreakerConfig
	logger *slog.Logger

	mu         sync.Mutex
	embedders  map[string]*gobreaker.CircuitBreaker[[][]float32]
	generators map[string]*gobreaker.CircuitBreaker[string]
}

// NewBreakers creates an empty set. Zero-valued cfg fields use defaults.
func NewBreakers(cfg BreakerConfig, logger *slog.Logger) *Breakers {
	return &Breakers{
		cfg:        cfg,
		logger:     logger,
		embedders:  make(map[string]*gobreaker.CircuitBreaker[[][]float32]),
		generators: make(map[string]*gobreaker.CircuitBreaker[string]),
	}
}

// Embedder wraps inner with the embedding breaker registered for key.
func (b *Breakers) Embedder(key string, inner Embedder) *BreakerEmbedder {
	name := "embedder:" + key
	b.mu.Lock()
	cb, ok := b.embedders[key]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[[][]float32](newSettings(name, b.cfg, b.logger))
		b.embedders[key] = cb
	}
	b.mu.Unlock()
	return &BreakerEmbedder{name: name, inner: inner, breaker: cb}
}

// Generator wraps inner with the generation breaker registered for key.
func (b *Breakers) Generator(key string, inner Generator) *BreakerGenerator {
	name := "generator:" + key
	b.mu.Lock()
	cb, ok := b.generators[key]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[string](newSettings(name, b.cfg, b.logger))
		b.generators[key] = cb
	}
	b.mu.Unlock()
	return &BreakerGenerator{name: name, inner: inner, breaker: cb}
}

// BreakerKey identifies the upstream cfg talks to: provider, model and URL.
// Credentials contribute only a short fingerprint, so one caller's rejected
// key does not open the circuit for callers with valid keys.
func BreakerKey(cfg ProviderConfig) string {
	desc := cfg.Describe()
	key := cfg.Provider().String() + ":" + desc[ArgModel]
	if url := desc[ArgURL]; url != "" {
		key += ":" + url
	}

	var secret string
	switch c := cfg.(type) {
	case *OpenAIConfig:
		secret = c.APIKey
	case *GeminiConfig:
		secret = c.APIKey
	}
	if secret != "" {
		h := fnv.New32a()
		h.Write([]byte(secret))
		key += fmt.Sprintf("#%08x", h.Sum32())
	}
	return key
}
