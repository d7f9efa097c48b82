package pipeline

import (
	"github.com/poiesic/quickrag/storage"
)

// Registry holds the stages shared by every assembled pipeline. It is built
// once at startup and never mutated; per-request configuration lives in the
// EmbeddingStage built for that request.
type Registry struct {
	converter Converter
	cleaner   Processor
	splitter  Processor
	writer    Writer
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	converterOpts []ConverterOption
	splitLength   int
	splitOverlap  int
}

// WithConverterOptions passes options to the PDF converter.
func WithConverterOptions(opts ...ConverterOption) RegistryOption {
	return func(c *registryConfig) {
		c.converterOpts = append(c.converterOpts, opts...)
	}
}

// WithSplitWindow overrides the splitter window of DefaultSplitLength
// passages overlapping by DefaultSplitOverlap.
func WithSplitWindow(length, overlap int) RegistryOption {
	return func(c *registryConfig) {
		c.splitLength = length
		c.splitOverlap = overlap
	}
}

// NewRegistry builds the shared stages writing to store.
func NewRegistry(store storage.DocumentStore, opts ...RegistryOption) (*Registry, error) {
	cfg := registryConfig{
		splitLength:  DefaultSplitLength,
		splitOverlap: DefaultSplitOverlap,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	writer, err := NewDocumentWriter(store)
	if err != nil {
		return nil, err
	}
	splitter, err := NewDocumentSplitter(cfg.splitLength, cfg.splitOverlap)
	if err != nil {
		return nil, err
	}

	return &Registry{
		converter: NewPDFConverter(cfg.converterOpts...),
		cleaner:   NewDocumentCleaner(),
		splitter:  splitter,
		writer:    writer,
	}, nil
}

// Converter returns the shared converter.
func (r *Registry) Converter() Converter { return r.converter }

// Cleaner returns the shared cleaner.
func (r *Registry) Cleaner() Processor { return r.cleaner }

// Splitter returns the shared splitter.
func (r *Registry) Splitter() Processor { return r.splitter }

// Writer returns the shared writer.
func (r *Registry) Writer() Writer { return r.writer }
