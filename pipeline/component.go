package pipeline

import (
	"context"

	"github.com/poiesic/quickrag/core"
)

// Component names in the ingestion chain, in execution order.
const (
	ComponentConverter = "converter"
	ComponentCleaner   = "document_cleaner"
	ComponentSplitter  = "document_splitter"
	ComponentEmbedder  = "document_embedder"
	ComponentWriter    = "document_writer"
)

// StageOrder lists the component names of an ingestion pipeline from source to sink.
func StageOrder() []string {
	return []string{
		ComponentConverter,
		ComponentCleaner,
		ComponentSplitter,
		ComponentEmbedder,
		ComponentWriter,
	}
}

// Source is raw input handed to a converter.
type Source struct {
	// Name is the original file name, recorded in document metadata.
	Name string
	// ContentType is the declared MIME type. Empty means application/pdf.
	ContentType string
	// Data is the file content.
	Data []byte
}

// ComponentSpec describes a stage for the persisted pipeline definition.
// Params must never contain secrets.
type ComponentSpec struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"init_parameters,omitempty"`
}

// Component is implemented by every stage.
type Component interface {
	Spec() ComponentSpec
}

// Converter turns a Source into documents.
type Converter interface {
	Component
	Convert(ctx context.Context, src Source) ([]*core.Document, error)
}

// Processor transforms documents. Implementations must not modify their
// input slice or the documents in it.
type Processor interface {
	Component
	Process(ctx context.Context, docs []*core.Document) ([]*core.Document, error)
}

// Writer persists documents.
type Writer interface {
	Component
	Write(ctx context.Context, docs []*core.Document) (core.WriteResult, error)
}
