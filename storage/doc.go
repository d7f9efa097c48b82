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

// Package storage provides the vector store abstraction for quickrag.
//
// DocumentStore decouples the ingestion writer and the answerer from the
// backend. Two backends are provided:
//
//   - storage/badger: embedded BadgerDB, on disk or in memory
//   - storage/pgvector: PostgreSQL with the pgvector extension
//
// # Duplicate Handling
//
// Documents are keyed by their content-derived ID (core.DocumentID). Writes
// take a core.DuplicatePolicy; the ingestion writer always uses
// core.DuplicatePolicySkip so re-ingesting the same PDF is a no-op.
//
// # Usage
//
//	store, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	res, err := store.WriteDocuments(ctx, docs, core.DuplicatePolicySkip)
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
