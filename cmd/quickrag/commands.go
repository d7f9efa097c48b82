package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/poiesic/quickrag"
	"github.com/poiesic/quickrag/answer"
	"github.com/poiesic/quickrag/config"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/pipeline"
	"github.com/poiesic/quickrag/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	if file := c.String("env-file"); file != "" {
		return config.Load(file)
	}
	return config.Load()
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("listen"); addr != "" {
		cfg.ListenAddr = addr
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := quickrag.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open quickrag: %w", err)
	}
	defer app.Close()

	srv, err := server.New(cfg, app, server.WithRequestTimeout(c.Duration("request-timeout")))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.ListenAndServe(ctx)
}

func ingestCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one file is required")
	}
	id := c.String("id")
	if id != "" && len(files) > 1 {
		return errors.New("--id can only be used with a single file")
	}
	if c.Int("concurrency") <= 0 {
		return errors.New("concurrency must be greater than 0")
	}

	rawArgs, err := argsJSON(c.String("args-json"), c.StringSlice("arg"))
	if err != nil {
		return err
	}

	// Every request is validated before anything is opened or written.
	requests := make([]*core.IngestionRequest, len(files))
	for i := range files {
		pipelineID := id
		if pipelineID == "" {
			pipelineID = uuid.NewString()
		}
		requests[i], err = core.NewIngestionRequest(c.String("provider"), c.String("model"), rawArgs, pipelineID)
		if err != nil {
			return err
		}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := quickrag.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open quickrag: %w", err)
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Int("concurrency"))
	for i, file := range files {
		req := requests[i]
		g.Go(func() error {
			src, err := readSource(file)
			if err != nil {
				return err
			}
			progress := pipeline.NewProgressTracker(c.App.ErrWriter, c.Int("report-interval"))
			res, err := app.Ingest(gctx, req, src, pipeline.WithProgress(progress))
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			fmt.Fprintf(c.App.Writer, "%s: pipeline %s (%s), %d chunks, %d written, %d skipped\n",
				file, res.PipelineID, res.PipelineFile, res.Chunks, res.Write.Written, res.Write.Skipped)
			return nil
		})
	}
	return g.Wait()
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	llmArgs, err := argsJSON("", c.StringSlice("llm-arg"))
	if err != nil {
		return err
	}
	llmProvider, llmParsed, err := core.ParseProviderArgs(c.String("provider"), c.String("llm"), llmArgs)
	if err != nil {
		return err
	}

	embeddingProviderName := c.String("embedding-provider")
	if embeddingProviderName == "" {
		embeddingProviderName = c.String("provider")
	}
	embeddingArgs, err := argsJSON("", c.StringSlice("embedding-arg"))
	if err != nil {
		return err
	}
	embeddingProvider, embeddingParsed, err := core.ParseProviderArgs(embeddingProviderName, c.String("embedding-model"), embeddingArgs)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	app, err := quickrag.Open(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open quickrag: %w", err)
	}
	defer app.Close()

	reply, err := app.Ask(c.Context, quickrag.AskRequest{
		Question: answer.Question{
			Text:        question,
			TopK:        c.Int("top-k"),
			Temperature: c.Float64("temperature"),
		},
		LLMProvider:       llmProvider,
		LLMArgs:           llmParsed,
		EmbeddingProvider: embeddingProvider,
		EmbeddingArgs:     embeddingParsed,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, reply.Text)
	for i, doc := range reply.Sources {
		fmt.Fprintf(c.App.ErrWriter, "%d: [%0.3f] %s (%s)\n", i, doc.Score, doc.ID, doc.Meta[pipeline.MetaFileName])
	}
	return nil
}

// inspectCommand only reads the definition file, so it works while a
// server holds the store.
func inspectCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	id := c.String("id")
	if err := core.ValidatePipelineID(id); err != nil {
		return err
	}

	def, err := pipeline.LoadDefinition(filepath.Join(cfg.PipelineDir, pipeline.FileName(id)))
	if err != nil {
		return err
	}
	out, err := def.Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}

// argsJSON merges key=value pairs over a JSON argument object and returns
// the result as JSON.
func argsJSON(raw string, pairs []string) (string, error) {
	args, err := core.ParseArgsJSON(raw)
	if err != nil {
		return "", err
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return "", fmt.Errorf("%w: argument %q is not key=value", core.ErrMalformedRequest, pair)
		}
		args[key] = value
	}
	out, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func readSource(path string) (pipeline.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pipeline.Source{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, nil
}
