package storage

import (
	"context"

	"github.com/poiesic/quickrag/core"
)

// DocumentStore persists embedded documents and serves similarity search.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// WriteDocuments stores docs according to policy.
	// With core.DuplicatePolicySkip, documents whose ID already exists (or
	// appears earlier in the same call) are counted as skipped and left
	// untouched. core.DuplicatePolicyOverwrite replaces them.
	// core.DuplicatePolicyFail returns ErrDuplicateKey and writes nothing.
	WriteDocuments(ctx context.Context, docs []*core.Document, policy core.DuplicatePolicy) (core.WriteResult, error)

	// GetDocuments retrieves documents by ID.
	// Returns only the documents that exist (no error for missing IDs).
	GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// FindSimilar finds documents similar to the given vector.
	// Returns documents with Score >= minScore, up to limit results,
	// ordered by score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.Document, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
