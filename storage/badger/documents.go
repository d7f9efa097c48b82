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

package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/storage"
)

const (
	defaultWriteBatchSize = 256
)

// DocumentStore implements storage.DocumentStore for BadgerDB.
type DocumentStore struct {
	backend     *Backend
	ownsBackend bool
	batchSize   int
	logger      *slog.Logger
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithWriteBatchSize sets how many documents are written per transaction.
func WithWriteBatchSize(n int) Option {
	return func(s *DocumentStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DocumentStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDocumentStore creates a store on an already opened backend.
// Closing the store leaves the backend open.
func NewDocumentStore(backend *Backend, opts ...Option) *DocumentStore {
	s := &DocumentStore{
		backend:   backend,
		batchSize: defaultWriteBatchSize,
		logger:    slog.Default().With("component", "badger-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a BadgerDB database at path and returns a store that owns it.
// An empty path opens an in-memory database.
func Open(path string, opts ...Option) (storage.DocumentStore, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}
	s := NewDocumentStore(backend, opts...)
	s.ownsBackend = true
	return s, nil
}

// Close releases the backend if the store opened it.
func (s *DocumentStore) Close() error {
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

// WriteDocuments stores docs according to policy.
func (s *DocumentStore) WriteDocuments(ctx context.Context, docs []*core.Document, policy core.DuplicatePolicy) (core.WriteResult, error) {
	var total core.WriteResult

	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return total, err
		}
	}

	if policy == core.DuplicatePolicyFail {
		if err := s.checkAbsent(docs); err != nil {
			return total, err
		}
	}

	// Duplicates inside the batch are resolved before touching the database
	// so that chunk boundaries cannot change the outcome.
	seen := make(map[string]struct{}, len(docs))
	unique := make([]*core.Document, 0, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			switch policy {
			case core.DuplicatePolicyFail:
				return total, fmt.Errorf("%w: %s repeated in batch", storage.ErrDuplicateKey, doc.ID)
			case core.DuplicatePolicyOverwrite:
				// last one wins
				idx := slices.IndexFunc(unique, func(d *core.Document) bool { return d.ID == doc.ID })
				unique[idx] = doc
			default:
				total.Skipped++
			}
			continue
		}
		seen[doc.ID] = struct{}{}
		unique = append(unique, doc)
	}

	for chunk := range slices.Chunk(unique, s.batchSize) {
		res, err := s.writeChunk(ctx, chunk, policy)
		if err != nil {
			return total, err
		}
		total.Add(res)
	}

	s.logger.Debug("documents written",
		"policy", policy,
		"written", total.Written,
		"skipped", total.Skipped)
	return total, nil
}

func (s *DocumentStore) checkAbsent(docs []*core.Document) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			_, err := tx.Get(makeDocumentKey(doc.ID))
			if err == nil {
				return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, doc.ID)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	}, false)
}

func (s *DocumentStore) writeChunk(ctx context.Context, docs []*core.Document, policy core.DuplicatePolicy) (core.WriteResult, error) {
	var res core.WriteResult

	err := s.backend.Update(ctx, func(tx *badger.Txn) error {
		res = core.WriteResult{}
		for _, doc := range docs {
			key := makeDocumentKey(doc.ID)

			if policy != core.DuplicatePolicyOverwrite {
				_, err := tx.Get(key)
				switch {
				case err == nil && policy == core.DuplicatePolicyFail:
					return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, doc.ID)
				case err == nil:
					res.Skipped++
					continue
				case !errors.Is(err, badger.ErrKeyNotFound):
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
			res.Written++
		}
		return nil
	})
	if err != nil {
		return core.WriteResult{}, err
	}
	return res, nil
}

// GetDocuments retrieves documents by ID, omitting missing ones.
func (s *DocumentStore) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	docs := make([]*core.Document, 0, len(ids))

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)

	return docs, err
}

// CountDocuments returns the number of stored documents.
func (s *DocumentStore) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// FindSimilar scans all documents and scores them by dot product, which
// equals cosine similarity because stored vectors are unit length. Documents
// whose embedding length differs from vector are never scored.
func (s *DocumentStore) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.Document, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Document
	mismatched := 0

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}

			// Vectors from another embedding model are not comparable.
			if len(doc.Embedding) != len(vector) {
				mismatched++
				continue
			}

			score := dotProduct(vector, doc.Embedding)
			if score >= minScore {
				doc.Score = score
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	if mismatched > 0 {
		s.logger.Debug("skipped documents with other dimensions",
			"count", mismatched,
			"dimensions", len(vector),
		)
	}

	// Sort by score descending, ID ascending for stable ties
	slices.SortFunc(results, func(a, b *core.Document) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// readDocument loads a document, returning nil when the key is absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// dotProduct calculates the dot product of two vectors of equal length.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
