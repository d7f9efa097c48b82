package answer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGenerator(t *testing.T) {
	tests := []struct {
		provider core.Provider
		args     map[string]string
	}{
		{core.ProviderOpenAI, map[string]string{"api_key": "k", "model": "gpt-4o-mini"}},
		{core.ProviderOllama, map[string]string{"url": "http://127.0.0.1:1", "model": "llama3"}},
		{core.ProviderGemini, map[string]string{"api_key": "k", "model": "gemini-1.5-flash"}},
	}
	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			llm, err := BuildGenerator(tt.provider, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, llm.Config().Provider())
			assert.NoError(t, llm.Close())
		})
	}
}

func TestBuildGenerator_CoversEveryProvider(t *testing.T) {
	for _, p := range core.Providers() {
		assert.Contains(t, generatorConstructors, p)
	}
}

func TestBuildGenerator_Invalid(t *testing.T) {
	_, err := BuildGenerator(core.Provider(42), nil)
	assert.ErrorIs(t, err, core.ErrUnknownProvider)

	_, err = BuildGenerator(core.ProviderOpenAI, map[string]string{"model": "gpt-4o-mini"})
	require.ErrorIs(t, err, core.ErrInvalidArguments)
	var argErr *core.ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "api_key", argErr.Key)
}

func TestBuildGenerator_SharedBreakerTripsAcrossRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	breakers := ai.NewBreakers(ai.BreakerConfig{MaxFailures: 2, Timeout: time.Hour}, nil)
	args := map[string]string{"url": srv.URL, "model": "llama3"}

	generate := func() error {
		llm, err := BuildGenerator(core.ProviderOllama, args, WithBreakers(breakers))
		require.NoError(t, err)
		defer llm.Close()
		_, err = llm.Generate(context.Background(), "prompt", ai.GenerateOptions{})
		return err
	}

	for i := 0; i < 2; i++ {
		err := generate()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ai.ErrCircuitOpen)
	}
	before := hits.Load()

	err := generate()
	assert.ErrorIs(t, err, ai.ErrCircuitOpen)
	assert.Equal(t, before, hits.Load())
}
