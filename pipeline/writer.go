package pipeline

import (
	"context"

	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/storage"
)

// DocumentWriter appends documents to a store, skipping any whose key is
// already present.
type DocumentWriter struct {
	store storage.DocumentStore
}

var _ Writer = (*DocumentWriter)(nil)

// NewDocumentWriter creates a writer over store.
func NewDocumentWriter(store storage.DocumentStore) (*DocumentWriter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &DocumentWriter{store: store}, nil
}

// Spec implements Component.
func (w *DocumentWriter) Spec() ComponentSpec {
	return ComponentSpec{
		Type: "pipeline.DocumentWriter",
		Params: map[string]any{
			"policy": core.DuplicatePolicySkip.String(),
		},
	}
}

// Write implements Writer.
func (w *DocumentWriter) Write(ctx context.Context, docs []*core.Document) (core.WriteResult, error) {
	if len(docs) == 0 {
		return core.WriteResult{}, nil
	}
	return w.store.WriteDocuments(ctx, docs, core.DuplicatePolicySkip)
}
