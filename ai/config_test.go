package ai

import (
	"errors"
	"testing"

	"github.com/poiesic/quickrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Valid(t *testing.T) {
	t.Run("openai with url", func(t *testing.T) {
		cfg, err := ParseArgs(core.ProviderOpenAI, map[string]string{
			"api_key": "sk-test",
			"model":   "text-embedding-3-small",
			"url":     "https://api.openai.com/v1",
		})
		require.NoError(t, err)

		oa, ok := cfg.(*OpenAIConfig)
		require.True(t, ok)
		assert.Equal(t, "sk-test", oa.APIKey)
		assert.Equal(t, "text-embedding-3-small", oa.Model)
		assert.Equal(t, "https://api.openai.com/v1", oa.BaseURL)
		assert.Equal(t, core.ProviderOpenAI, cfg.Provider())
	})

	t.Run("openai without url uses default endpoint", func(t *testing.T) {
		cfg, err := ParseArgs(core.ProviderOpenAI, map[string]string{"api_key": "k", "model": "m"})
		require.NoError(t, err)
		assert.Equal(t, DefaultOpenAIBaseURL, cfg.(*OpenAIConfig).Endpoint())
	})

	t.Run("ollama", func(t *testing.T) {
		cfg, err := ParseArgs(core.ProviderOllama, map[string]string{
			"url":   "http://localhost:11434",
			"model": "nomic-embed-text",
		})
		require.NoError(t, err)
		ol := cfg.(*OllamaConfig)
		assert.Equal(t, "http://localhost:11434", ol.URL)
		assert.Equal(t, "nomic-embed-text", ol.Model)
	})

	t.Run("gemini", func(t *testing.T) {
		cfg, err := ParseArgs(core.ProviderGemini, map[string]string{"api_key": "k", "model": "text-embedding-004"})
		require.NoError(t, err)
		assert.Equal(t, core.ProviderGemini, cfg.Provider())
	})
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		provider core.Provider
		args     map[string]string
		wantKey  string
	}{
		{
			name:     "openai missing api key",
			provider: core.ProviderOpenAI,
			args:     map[string]string{"model": "m"},
			wantKey:  "api_key",
		},
		{
			name:     "openai missing model",
			provider: core.ProviderOpenAI,
			args:     map[string]string{"api_key": "k"},
			wantKey:  "model",
		},
		{
			name:     "openai nil map reports first required key",
			provider: core.ProviderOpenAI,
			args:     nil,
			wantKey:  "api_key",
		},
		{
			name:     "openai extraneous key",
			provider: core.ProviderOpenAI,
			args:     map[string]string{"api_key": "k", "model": "m", "organization": "o"},
			wantKey:  "organization",
		},
		{
			name:     "openai empty api key",
			provider: core.ProviderOpenAI,
			args:     map[string]string{"api_key": "  ", "model": "m"},
			wantKey:  "api_key",
		},
		{
			name:     "ollama missing url",
			provider: core.ProviderOllama,
			args:     map[string]string{"model": "m"},
			wantKey:  "url",
		},
		{
			name:     "ollama given an api key",
			provider: core.ProviderOllama,
			args:     map[string]string{"model": "m", "url": "http://localhost:11434", "api_key": "k"},
			wantKey:  "api_key",
		},
		{
			name:     "ollama url without scheme",
			provider: core.ProviderOllama,
			args:     map[string]string{"model": "m", "url": "localhost:11434"},
			wantKey:  "url",
		},
		{
			name:     "openai ftp url",
			provider: core.ProviderOpenAI,
			args:     map[string]string{"api_key": "k", "model": "m", "url": "ftp://example.com"},
			wantKey:  "url",
		},
		{
			name:     "gemini given a url",
			provider: core.ProviderGemini,
			args:     map[string]string{"api_key": "k", "model": "m", "url": "https://example.com"},
			wantKey:  "url",
		},
		{
			name:     "missing key reported before extraneous key",
			provider: core.ProviderOllama,
			args:     map[string]string{"model": "m", "zzz": "x"},
			wantKey:  "url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.provider, tt.args)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, core.ErrInvalidArguments)

			var argErr *core.ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tt.wantKey, argErr.Key)
			assert.Equal(t, tt.provider, argErr.Provider)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestParseArgs_UnknownProvider(t *testing.T) {
	_, err := ParseArgs(core.Provider(99), map[string]string{"model": "m"})
	assert.ErrorIs(t, err, core.ErrUnknownProvider)
}

func TestDescribeRedactsSecrets(t *testing.T) {
	oa := &OpenAIConfig{APIKey: "sk-secret", Model: "m"}
	desc := oa.Describe()
	assert.Equal(t, Redacted, desc["api_key"])
	assert.Equal(t, DefaultOpenAIBaseURL, desc["url"])
	for _, v := range desc {
		assert.NotEqual(t, "sk-secret", v)
	}

	gm := &GeminiConfig{APIKey: "g-secret", Model: "m"}
	for _, v := range gm.Describe() {
		assert.NotEqual(t, "g-secret", v)
	}

	ol := &OllamaConfig{URL: "http://h:1", Model: "m"}
	assert.Equal(t, map[string]string{"model": "m", "url": "http://h:1"}, ol.Describe())
}

func TestRequiredArgs(t *testing.T) {
	assert.Equal(t, []string{"api_key", "model"}, RequiredArgs(core.ProviderOpenAI))
	assert.Equal(t, []string{"model", "url"}, RequiredArgs(core.ProviderOllama))

	keys := RequiredArgs(core.ProviderOpenAI)
	keys[0] = "mutated"
	assert.Equal(t, "api_key", RequiredArgs(core.ProviderOpenAI)[0])
}
