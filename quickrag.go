// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quickrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/quickrag/ai"
	"github.com/poiesic/quickrag/answer"
	"github.com/poiesic/quickrag/archive"
	"github.com/poiesic/quickrag/config"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/pipeline"
	"github.com/poiesic/quickrag/storage"
	"github.com/poiesic/quickrag/storage/badger"
	"github.com/poiesic/quickrag/storage/pgvector"
)

// App holds the long-lived parts shared by every request: the document
// store, the stage registry and the assembler.
type App struct {
	cfg       *config.Config
	store     storage.DocumentStore
	ownsStore bool
	registry  *pipeline.Registry
	assembler *pipeline.Assembler
	archiver  archive.Archiver
	embedOpts []pipeline.EmbeddingOption
	breakers  *ai.Breakers
	logger    *slog.Logger
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	store        storage.DocumentStore
	archiver     archive.Archiver
	registryOpts []pipeline.RegistryOption
	embedOpts    []pipeline.EmbeddingOption
	breakerCfg   ai.BreakerConfig
	logger       *slog.Logger
}

// WithStore uses store instead of opening the configured backend.
// The caller keeps ownership and closes it.
func WithStore(store storage.DocumentStore) Option {
	return func(o *appOptions) {
		o.store = store
	}
}

// WithArchiver replaces the configured upload archiver.
func WithArchiver(a archive.Archiver) Option {
	return func(o *appOptions) {
		o.archiver = a
	}
}

// WithRegistryOptions passes options to the shared stage registry.
func WithRegistryOptions(opts ...pipeline.RegistryOption) Option {
	return func(o *appOptions) {
		o.registryOpts = append(o.registryOpts, opts...)
	}
}

// WithEmbeddingOptions adds options applied to every embedding stage.
func WithEmbeddingOptions(opts ...pipeline.EmbeddingOption) Option {
	return func(o *appOptions) {
		o.embedOpts = append(o.embedOpts, opts...)
	}
}

// WithBreakerConfig tunes the circuit breakers shared by every request to
// the same provider endpoint.
func WithBreakerConfig(cfg ai.BreakerConfig) Option {
	return func(o *appOptions) {
		o.breakerCfg = cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// Open validates cfg, opens the document store and prepares the shared
// stages. The pipeline directory is created if needed.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &appOptions{logger: slog.Default().With("component", "quickrag")}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	if err := os.MkdirAll(cfg.PipelineDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create pipeline directory: %w", core.ErrPersistence, err)
	}

	breakers := ai.NewBreakers(options.breakerCfg, slog.Default().With("component", "breaker"))
	app := &App{
		cfg:      cfg,
		store:    options.store,
		archiver: options.archiver,
		embedOpts: append([]pipeline.EmbeddingOption{
			pipeline.WithBatchSize(cfg.EmbedBatchSize),
			pipeline.WithWorkers(cfg.EmbedWorkers),
			pipeline.WithBreakers(breakers),
		}, options.embedOpts...),
		breakers: breakers,
		logger:   logger,
	}

	if app.store == nil {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.store = store
		app.ownsStore = true
	}

	if app.archiver == nil {
		archiver, err := openArchiver(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.archiver = archiver
	}

	registry, err := pipeline.NewRegistry(app.store, options.registryOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	assembler, err := pipeline.NewAssembler(registry, cfg.PipelineDir, pipeline.WithAssemblerLogger(logger))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.registry = registry
	app.assembler = assembler

	logger.Info("quickrag ready", "backend", cfg.StoreBackend, "pipeline_dir", cfg.PipelineDir)
	return app, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendBadger:
		return badger.Open(cfg.StorePath)
	case config.BackendPgvector:
		return pgvector.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.StoreBackend)
	}
}

func openArchiver(ctx context.Context, cfg *config.Config) (archive.Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return archive.Nop{}, nil
	}
	return archive.NewS3Archiver(ctx, archive.S3Config{
		Bucket:    cfg.ArchiveBucket,
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Endpoint:  cfg.ArchiveEndpoint,
	})
}

// Close releases the store when the App opened it.
func (a *App) Close() error {
	if a.ownsStore && a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing document store", "err", err)
			return err
		}
	}
	return nil
}

// Store returns the document store.
func (a *App) Store() storage.DocumentStore {
	return a.store
}

// Config returns the configuration the App was opened with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// DefinitionPath returns where the definition for pipeline id is written.
func (a *App) DefinitionPath(id string) string {
	return a.assembler.Path(id)
}

// IngestResult describes a completed ingestion.
type IngestResult struct {
	PipelineID   string           `json:"pipeline_id"`
	PipelineFile string           `json:"pipeline_file"`
	ArchiveURL   string           `json:"archive_url,omitempty"`
	Content      string           `json:"content"`
	Chunks       int              `json:"chunks"`
	Write        core.WriteResult `json:"-"`
}

// Ingest builds the request's embedding stage, assembles and persists the
// pipeline, archives the source and runs it. Any failure before the run
// leaves the store untouched.
func (a *App) Ingest(ctx context.Context, req *core.IngestionRequest, src pipeline.Source, opts ...pipeline.EmbeddingOption) (*IngestResult, error) {
	logger := a.logger.With("pipeline_id", req.PipelineID)

	stage, err := pipeline.BuildEmbedder(req.Provider, req.Args, append(append([]pipeline.EmbeddingOption{
		pipeline.WithEmbeddingLogger(logger),
	}, a.embedOpts...), opts...)...)
	if err != nil {
		return nil, err
	}
	defer stage.Close()

	p, err := a.assembler.Assemble(req.PipelineID, stage)
	if err != nil {
		return nil, err
	}

	archiveURL, err := a.archiver.Store(ctx, archive.Key(req.PipelineID, src.Name), src.Data, src.ContentType)
	if err != nil {
		logger.Warn("failed to archive upload", "file", src.Name, "err", err)
	}

	run, err := p.Run(ctx, src)
	if err != nil {
		logger.Error("pipeline run failed", "err", err)
		return nil, err
	}

	return &IngestResult{
		PipelineID:   req.PipelineID,
		PipelineFile: p.Path(),
		ArchiveURL:   archiveURL,
		Content:      run.Content,
		Chunks:       run.Chunks,
		Write:        run.Write,
	}, nil
}

// AskRequest is a question with the providers used to embed it and to
// answer it. The embedding provider must match the one used at ingestion.
type AskRequest struct {
	Question          answer.Question
	LLMProvider       core.Provider
	LLMArgs           map[string]string
	EmbeddingProvider core.Provider
	EmbeddingArgs     map[string]string
}

// Ask answers a question from the stored passages.
func (a *App) Ask(ctx context.Context, req AskRequest) (*answer.Answer, error) {
	stage, err := pipeline.BuildEmbedder(req.EmbeddingProvider, req.EmbeddingArgs, a.embedOpts...)
	if err != nil {
		return nil, err
	}
	defer stage.Close()

	llm, err := answer.BuildGenerator(req.LLMProvider, req.LLMArgs, answer.WithBreakers(a.breakers))
	if err != nil {
		return nil, err
	}
	defer llm.Close()

	answerer, err := answer.NewAnswerer(a.store, stage, llm, answer.WithLogger(a.logger.With("component", "answerer")))
	if err != nil {
		return nil, err
	}
	return answerer.Ask(ctx, req.Question)
}

// LoadDefinition reads the persisted definition of pipeline id.
func (a *App) LoadDefinition(id string) (*pipeline.Definition, error) {
	if err := core.ValidatePipelineID(id); err != nil {
		return nil, err
	}
	return pipeline.LoadDefinition(a.assembler.Path(id))
}
