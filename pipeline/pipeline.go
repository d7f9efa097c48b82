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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/quickrag/core"
)

// Pipeline is an assembled ingestion chain ready to run.
type Pipeline struct {
	definition *Definition
	path       string
	converter  Converter
	cleaner    Processor
	splitter   Processor
	embedder   *EmbeddingStage
	writer     Writer
	logger     *slog.Logger
}

// RunResult summarizes one run.
type RunResult struct {
	PipelineID string
	// Content is the cleaned text of the converted source.
	Content  string
	Chunks   int
	Write    core.WriteResult
	Duration time.Duration
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string {
	return p.definition.ID()
}

// Definition returns the serializable definition.
func (p *Pipeline) Definition() *Definition {
	return p.definition
}

// Path returns where the definition was persisted.
func (p *Pipeline) Path() string {
	return p.path
}

// Embedder returns the request's embedding stage.
func (p *Pipeline) Embedder() *EmbeddingStage {
	return p.embedder
}

// Run converts src and pushes it through every stage to the store,
// synchronously. Nothing reaches the store unless every earlier stage
// succeeds.
func (p *Pipeline) Run(ctx context.Context, src Source) (*RunResult, error) {
	started := time.Now()

	docs, err := p.converter.Convert(ctx, src)
	if err != nil {
		return nil, err
	}
	docs, err = p.cleaner.Process(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ComponentCleaner, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConversion, src.Name, core.ErrEmptyContent)
	}
	content := joinContent(docs)

	chunks, err := p.splitter.Process(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ComponentSplitter, err)
	}
	embedded, err := p.embedder.Process(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ComponentEmbedder, err)
	}
	written, err := p.writer.Write(ctx, embedded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ComponentWriter, err)
	}

	res := &RunResult{
		PipelineID: p.ID(),
		Content:    content,
		Chunks:     len(chunks),
		Write:      written,
		Duration:   time.Since(started),
	}
	p.logger.Info("pipeline run complete",
		"source", src.Name,
		"chunks", res.Chunks,
		"written", written.Written,
		"skipped", written.Skipped,
		"duration", res.Duration)
	return res, nil
}

func joinContent(docs []*core.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, PassageSeparator)
}
