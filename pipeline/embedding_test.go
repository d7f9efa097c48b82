package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/ai/mock"
	"github.com/poiesic/quickrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpenAIConfig = &ai.OpenAIConfig{APIKey: "sk-test", Model: "text-embedding-3-small"}

func chunkDocs(n int) []*core.Document {
	docs := make([]*core.Document, n)
	for i := range docs {
		docs[i] = core.NewDocument(fmt.Sprintf("chunk %d", i), map[string]string{MetaSplitID: fmt.Sprint(i)})
	}
	return docs
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNewEmbeddingStage_Required(t *testing.T) {
	_, err := NewEmbeddingStage(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewEmbeddingStage(testOpenAIConfig, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestEmbeddingStage_Process(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}

	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder, WithBatchSize(3), WithWorkers(2))
	require.NoError(t, err)

	input := chunkDocs(10)
	out, err := stage.Process(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, out, 10)

	assert.Equal(t, 4, embedder.CallCount(), "10 documents in batches of 3")
	assert.Equal(t, 10, embedder.TextCount())
	for i, doc := range out {
		assert.Equal(t, input[i].ID, doc.ID, "order and identity are preserved")
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, doc.Embedding, 1e-6)
		assert.Nil(t, input[i].Embedding, "input must not be modified")
	}
}

func TestEmbeddingStage_DefaultVectorsAreUnitLength(t *testing.T) {
	stage, err := NewEmbeddingStage(testOpenAIConfig, mock.NewMockEmbedder())
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), chunkDocs(5))
	require.NoError(t, err)
	for _, doc := range out {
		assert.InDelta(t, 1.0, magnitude(doc.Embedding), 1e-5)
	}
}

func TestEmbeddingStage_Empty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder)
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, embedder.CallCount())
}

func TestEmbeddingStage_ErrorStopsRun(t *testing.T) {
	boom := errors.New("provider unavailable")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder, WithBatchSize(2), WithWorkers(1))
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), chunkDocs(6))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	assert.Equal(t, 1, embedder.CallCount(), "no retries by default and remaining batches are abandoned")
}

func TestEmbeddingStage_Retry(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}

	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), chunkDocs(2))
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbeddingStage_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder)
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), chunkDocs(3))
	assert.ErrorIs(t, err, ai.ErrEmbeddingMismatch)
}

func TestEmbeddingStage_RateLimit(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder,
		WithBatchSize(1), WithWorkers(4), WithRateLimit(1000, 1))
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), chunkDocs(5))
	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.Equal(t, 5, embedder.CallCount())
}

func TestEmbeddingStage_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := mock.NewMockEmbedder()
	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = stage.Process(ctx, chunkDocs(2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, embedder.CallCount())
}

func TestEmbeddingStage_Progress(t *testing.T) {
	rec := &recordingProgress{}
	stage, err := NewEmbeddingStage(testOpenAIConfig, mock.NewMockEmbedder(),
		WithBatchSize(2), WithProgress(rec))
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), chunkDocs(5))
	require.NoError(t, err)

	assert.Equal(t, 5, rec.total)
	assert.Equal(t, int64(5), rec.done.Load())
	assert.True(t, rec.finished)
}

func TestEmbeddingStage_EmbedQuery(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 2}, nil
	}
	stage, err := NewEmbeddingStage(testOpenAIConfig, embedder)
	require.NoError(t, err)

	v, err := stage.EmbedQuery(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
}

func TestEmbeddingStage_SpecRedactsCredentials(t *testing.T) {
	stage, err := NewEmbeddingStage(testOpenAIConfig, mock.NewMockEmbedder(), WithBatchSize(16))
	require.NoError(t, err)

	spec := stage.Spec()
	assert.Equal(t, "openai.DocumentEmbedder", spec.Type)
	assert.Equal(t, "OPENAI", spec.Params["provider"])
	assert.Equal(t, "text-embedding-3-small", spec.Params[ai.ArgModel])
	assert.Equal(t, ai.Redacted, spec.Params[ai.ArgAPIKey])
	assert.Equal(t, 16, spec.Params["batch_size"])
	for _, v := range spec.Params {
		assert.NotEqual(t, "sk-test", v)
	}
}

type recordingProgress struct {
	total    int
	done     atomic.Int64
	finished bool
}

func (r *recordingProgress) Start(total int)     { r.total = total }
func (r *recordingProgress) Increment(delta int) { r.done.Add(int64(delta)) }
func (r *recordingProgress) Finish()             { r.finished = true }
