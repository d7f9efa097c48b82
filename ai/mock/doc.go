// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic unit vectors derived from a hash of the
// input text, so the same passage always lands on the same vector.
// MockGenerator records prompts and answers with a fixed string or a
// caller-supplied function.
//
//	emb := mock.NewMockEmbedder()
//	emb.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("boom")
//	}
//
// Both mocks are safe for concurrent use by a worker pool.
package mock
