package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/quickrag/core"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubGenerator struct {
	err error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "answer to " + prompt, nil
}

func TestBreakerEmbedder_PassesThrough(t *testing.T) {
	inner := &stubEmbedder{}
	b := NewBreakerEmbedder("test", inner, BreakerConfig{}, nil)

	v, err := b.EmbedText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	vs, err := b.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerEmbedder_OpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("connection refused")
	inner := &stubEmbedder{err: boom}
	b := NewBreakerEmbedder("test", inner, BreakerConfig{MaxFailures: 2, Timeout: time.Hour}, nil)

	_, err := b.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
	_, err = b.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err = b.EmbedText(context.Background(), "a")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls, "open circuit must not reach the provider")
}

func TestBreakerEmbedder_CancellationDoesNotTrip(t *testing.T) {
	inner := &stubEmbedder{err: context.Canceled}
	b := NewBreakerEmbedder("test", inner, BreakerConfig{MaxFailures: 1}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.EmbedTexts(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerGenerator(t *testing.T) {
	g := NewBreakerGenerator("test", &stubGenerator{}, BreakerConfig{}, nil)
	out, err := g.Generate(context.Background(), "q", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", out)

	boom := errors.New("500")
	failing := NewBreakerGenerator("failing", &stubGenerator{err: boom}, BreakerConfig{MaxFailures: 1, Timeout: time.Hour}, nil)
	_, err = failing.Generate(context.Background(), "q", GenerateOptions{})
	assert.ErrorIs(t, err, boom)
	_, err = failing.Generate(context.Background(), "q", GenerateOptions{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, gobreaker.StateOpen, failing.State())
}

func TestBreakers_SharedPerKey(t *testing.T) {
	breakers := NewBreakers(BreakerConfig{MaxFailures: 2, Timeout: time.Hour}, nil)
	boom := errors.New("503")

	for i := 0; i < 2; i++ {
		inner := &stubEmbedder{err: boom}
		_, err := breakers.Embedder("ollama:m:http://a", inner).EmbedText(context.Background(), "x")
		assert.ErrorIs(t, err, boom)
	}

	fresh := &stubEmbedder{}
	_, err := breakers.Embedder("ollama:m:http://a", fresh).EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, fresh.calls)

	other := &stubEmbedder{}
	_, err = breakers.Embedder("ollama:m:http://b", other).EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, other.calls)

	g := breakers.Generator("ollama:m:http://a", &stubGenerator{})
	assert.Equal(t, gobreaker.StateClosed, g.State(), "generators and embedders trip independently")
}

func TestBreakerKey(t *testing.T) {
	a, err := ParseArgs(core.ProviderOpenAI, map[string]string{"api_key": "first-secret", "model": "m", "url": "http://x"})
	require.NoError(t, err)
	b, err := ParseArgs(core.ProviderOpenAI, map[string]string{"api_key": "second-secret", "model": "m", "url": "http://x"})
	require.NoError(t, err)
	o, err := ParseArgs(core.ProviderOllama, map[string]string{"url": "http://localhost:11434", "model": "llama3"})
	require.NoError(t, err)

	assert.NotEqual(t, BreakerKey(a), BreakerKey(b))
	assert.NotContains(t, BreakerKey(a), "first-secret")
	assert.True(t, strings.HasPrefix(BreakerKey(a), "OPENAI:m:http://x#"), BreakerKey(a))
	assert.Equal(t, "OLLAMA:llama3:http://localhost:11434", BreakerKey(o))
}
