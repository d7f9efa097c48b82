package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/pipeline"
	"github.com/poiesic/quickrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// testEnv points configuration at an in-memory store and a temp pipeline dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PIPELINE_DIR", dir)
	t.Setenv("STORE_BACKEND", "badger")
	t.Setenv("STORE_PATH", "")
	t.Setenv("ARCHIVE_BUCKET", "")
	return dir
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"quickrag"}, args...))
	return out.String(), err
}

func findFlag[T cli.Flag](t *testing.T, cmd *cli.Command, name string) T {
	t.Helper()
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok {
			for _, n := range flag.Names() {
				if n == name {
					return f
				}
			}
		}
	}
	t.Fatalf("flag %s not found on %s", name, cmd.Name)
	var zero T
	return zero
}

func TestCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"serve", "ingest", "ask", "inspect"}, names)

	ingest := app.Command("ingest")
	require.NotNil(t, ingest)
	assert.True(t, findFlag[*cli.StringFlag](t, ingest, "provider").Required)
	assert.True(t, findFlag[*cli.StringFlag](t, ingest, "model").Required)
	assert.Equal(t, 2, findFlag[*cli.IntFlag](t, ingest, "concurrency").Value)

	ask := app.Command("ask")
	require.NotNil(t, ask)
	assert.Equal(t, 1, findFlag[*cli.IntFlag](t, ask, "top-k").Value)
	assert.Equal(t, 0.7, findFlag[*cli.Float64Flag](t, ask, "temperature").Value)
}

func TestIngestCommandValidation(t *testing.T) {
	t.Run("model is required", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ingest", "--provider", "openai", "a.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model")
	})

	t.Run("files are required", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ingest", "--provider", "openai", "--model", "m")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file")
	})

	t.Run("id with several files", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ingest", "--provider", "openai", "--model", "m", "--id", "x", "a.pdf", "b.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--id")
	})

	t.Run("unknown provider writes nothing", func(t *testing.T) {
		dir := testEnv(t)
		_, err := runApp(t, "ingest", "--provider", "cohere", "--model", "m", "--id", "req1", "a.pdf")
		assert.ErrorIs(t, err, core.ErrUnknownProvider)
		assert.NoFileExists(t, filepath.Join(dir, "req1_data_ingestion_pipeline.yaml"))
	})

	t.Run("bad arg pair", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ingest", "--provider", "openai", "--model", "m", "--arg", "api_key", "a.pdf")
		assert.ErrorIs(t, err, core.ErrMalformedRequest)
	})

	t.Run("missing provider argument writes nothing", func(t *testing.T) {
		dir := testEnv(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.4"), 0o644))
		_, err := runApp(t, "ingest", "--provider", "openai", "--model", "m", "--id", "req2", filepath.Join(dir, "a.pdf"))
		assert.ErrorIs(t, err, core.ErrInvalidArguments)
		assert.NoFileExists(t, filepath.Join(dir, "req2_data_ingestion_pipeline.yaml"))
	})
}

func TestAskCommandValidation(t *testing.T) {
	t.Run("question is required", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ask", "--provider", "openai", "--llm", "gpt", "--embedding-model", "e")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question")
	})

	t.Run("unknown embedding provider", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "ask", "--provider", "openai", "--llm", "gpt",
			"--embedding-provider", "bard", "--embedding-model", "e", "what?")
		assert.ErrorIs(t, err, core.ErrUnknownProvider)
	})
}

func TestInspectCommand(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "inspect", "--id", "../etc")
		assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
	})

	t.Run("missing definition", func(t *testing.T) {
		testEnv(t)
		_, err := runApp(t, "inspect", "--id", "nope")
		assert.Error(t, err)
	})

	t.Run("store held by another process", func(t *testing.T) {
		dir := testEnv(t)
		storePath := filepath.Join(dir, "store")
		t.Setenv("STORE_PATH", storePath)

		store, err := badger.Open(storePath)
		require.NoError(t, err)
		defer store.Close()

		registry, err := pipeline.NewRegistry(store)
		require.NoError(t, err)
		assembler, err := pipeline.NewAssembler(registry, dir)
		require.NoError(t, err)
		stage, err := pipeline.BuildEmbedder(core.ProviderOpenAI, map[string]string{"api_key": "cred123", "model": "text-embedding-3-small"})
		require.NoError(t, err)
		defer stage.Close()
		_, err = assembler.Assemble("held", stage)
		require.NoError(t, err)

		out, err := runApp(t, "inspect", "--id", "held")
		require.NoError(t, err)
		assert.Contains(t, out, "held")
		assert.Contains(t, out, "text-embedding-3-small")
		assert.NotContains(t, out, "cred123")
	})
}

func TestArgsJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "", nil, map[string]string{}, false},
		{"pairs only", "", []string{"api_key=k", "url=http://h:1/?a=b"}, map[string]string{"api_key": "k", "url": "http://h:1/?a=b"}, false},
		{"pairs override json", `{"api_key":"old","region":"x"}`, []string{"api_key=new"}, map[string]string{"api_key": "new", "region": "x"}, false},
		{"empty value allowed", "", []string{"api_key="}, map[string]string{"api_key": ""}, false},
		{"missing equals", "", []string{"api_key"}, nil, true},
		{"empty key", "", []string{"=v"}, nil, true},
		{"bad json", "{", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := argsJSON(tt.raw, tt.pairs)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrMalformedRequest)
				return
			}
			require.NoError(t, err)
			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Report.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o644))

	src, err := readSource(path)
	require.NoError(t, err)
	assert.Equal(t, "Report.PDF", src.Name)
	assert.Equal(t, "application/pdf", src.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), src.Data)

	_, err = readSource(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	run := func(args ...string) error {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
				&cli.StringFlag{Name: "log-format", Value: "text"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		return app.Run(append([]string{"test"}, args...))
	}

	for _, level := range []string{"debug", "info", "WaRn", "ERROR"} {
		t.Run(level, func(t *testing.T) {
			assert.NoError(t, run("--log-level", level))
		})
	}

	t.Run("json format", func(t *testing.T) {
		assert.NoError(t, run("-l", "debug", "--log-format", "json"))
	})

	t.Run("invalid level", func(t *testing.T) {
		err := run("--log-level", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid format", func(t *testing.T) {
		err := run("--log-format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}
