package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/quickrag/core"
)

// Assembler wires a request's embedding stage into the shared stages and
// persists the resulting definition.
type Assembler struct {
	registry *Registry
	dir      string
	fileMode os.FileMode
	logger   *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerLogger sets the assembler logger.
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFileMode sets the permissions of written definition files.
func WithFileMode(mode os.FileMode) AssemblerOption {
	return func(a *Assembler) {
		a.fileMode = mode
	}
}

// NewAssembler creates an assembler writing definitions into dir.
func NewAssembler(registry *Registry, dir string, opts ...AssemblerOption) (*Assembler, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if dir == "" {
		dir = "."
	}
	a := &Assembler{
		registry: registry,
		dir:      dir,
		fileMode: 0o644,
		logger:   slog.Default().With("component", "assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Dir returns the directory definitions are written to.
func (a *Assembler) Dir() string {
	return a.dir
}

// Path returns where the definition for id is written.
func (a *Assembler) Path(id string) string {
	return filepath.Join(a.dir, FileName(id))
}

// Assemble builds the chain converter -> document_cleaner ->
// document_splitter -> document_embedder -> document_writer, tags it with id
// and writes {id}_data_ingestion_pipeline.yaml. An unusable id fails with
// core.ErrInvalidIdentifier before anything is written; a file-system
// failure is reported as core.ErrPersistence. Nothing is cached.
func (a *Assembler) Assemble(id string, embedder *EmbeddingStage) (*Pipeline, error) {
	if err := core.ValidatePipelineID(id); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		converter: a.registry.Converter(),
		cleaner:   a.registry.Cleaner(),
		splitter:  a.registry.Splitter(),
		embedder:  embedder,
		writer:    a.registry.Writer(),
		logger:    a.logger.With("pipeline_id", id),
	}
	p.definition = newDefinition(id, StageOrder(), []Component{
		p.converter, p.cleaner, p.splitter, p.embedder, p.writer,
	})
	if err := p.definition.Validate(); err != nil {
		return nil, err
	}

	data, err := p.definition.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: encode definition: %w", core.ErrPersistence, err)
	}
	path := a.Path(id)
	if err := writeFileAtomic(path, data, a.fileMode); err != nil {
		a.logger.Error("failed to persist pipeline definition", "path", path, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	p.path = path

	a.logger.Info("pipeline assembled",
		"pipeline_id", id,
		"provider", embedder.Provider().String(),
		"path", path)
	return p, nil
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pipeline-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
