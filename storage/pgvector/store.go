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

package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/storage"
)

const uniqueViolation = "23505"

const (
	insertSkip = `
		INSERT INTO quickrag_documents (id, content, meta, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`
	insertOverwrite = `
		INSERT INTO quickrag_documents (id, content, meta, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, meta = EXCLUDED.meta, embedding = EXCLUDED.embedding`
	insertFail = `
		INSERT INTO quickrag_documents (id, content, meta, embedding)
		VALUES ($1, $2, $3, $4)`
)

// Store implements storage.DocumentStore on PostgreSQL with pgvector.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// Open connects to dsn, verifies the connection and bootstraps the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "pgvector-store"),
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteDocuments inserts docs in a single transaction. The duplicate policy
// maps onto the ON CONFLICT clause; core.DuplicatePolicyFail rolls the whole
// batch back on the first unique violation.
func (s *Store) WriteDocuments(ctx context.Context, docs []*core.Document, policy core.DuplicatePolicy) (core.WriteResult, error) {
	var res core.WriteResult
	if len(docs) == 0 {
		return res, nil
	}
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return res, err
		}
	}

	q := insertSkip
	switch policy {
	case core.DuplicatePolicyOverwrite:
		q = insertOverwrite
	case core.DuplicatePolicyFail:
		q = insertFail
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return res, err
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return res, err
	}
	defer stmt.Close()

	for _, doc := range docs {
		meta, err := marshalMeta(doc.Meta)
		if err != nil {
			_ = tx.Rollback()
			return core.WriteResult{}, err
		}
		result, err := stmt.ExecContext(ctx, doc.ID, doc.Content, meta, pgvector.NewVector(doc.Embedding))
		if err != nil {
			_ = tx.Rollback()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return core.WriteResult{}, fmt.Errorf("%w: %s", storage.ErrDuplicateKey, doc.ID)
			}
			return core.WriteResult{}, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return core.WriteResult{}, err
		}
		if n == 0 {
			res.Skipped++
		} else {
			res.Written++
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WriteResult{}, err
	}
	s.logger.Debug("documents written", "policy", policy, "written", res.Written, "skipped", res.Skipped)
	return res, nil
}

// GetDocuments retrieves documents by ID, omitting missing ones.
func (s *Store) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
		SELECT id, content, meta, embedding
		FROM quickrag_documents
		WHERE id = ANY($1)
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM quickrag_documents`).Scan(&n)
	return n, err
}

// FindSimilar orders documents by cosine distance to vector and reports
// 1 - distance as the score. Documents of other dimensions are ignored.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.Document, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	// The column is untyped, so rows of other dimensions are filtered out
	// before <=> sees them.
	const q = `
		WITH candidates AS MATERIALIZED (
			SELECT id, content, meta, embedding
			FROM quickrag_documents
			WHERE vector_dims(embedding) = vector_dims($1::vector)
		)
		SELECT id, content, meta, embedding, 1 - (embedding <=> $1) AS score
		FROM candidates
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1, id
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(vector), minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Document
	for rows.Next() {
		var (
			doc   core.Document
			meta  []byte
			emb   pgvector.Vector
			score float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &emb, &score); err != nil {
			return nil, err
		}
		if err := unmarshalMeta(meta, &doc); err != nil {
			return nil, err
		}
		doc.Embedding = emb.Slice()
		doc.Score = float32(score)
		out = append(out, &doc)
	}
	return out, rows.Err()
}

func scanDocument(rows *sql.Rows) (*core.Document, error) {
	var (
		doc  core.Document
		meta []byte
		emb  pgvector.Vector
	)
	if err := rows.Scan(&doc.ID, &doc.Content, &meta, &emb); err != nil {
		return nil, err
	}
	if err := unmarshalMeta(meta, &doc); err != nil {
		return nil, err
	}
	doc.Embedding = emb.Slice()
	return &doc, nil
}

func marshalMeta(meta map[string]string) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshalMeta(data []byte, doc *core.Document) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &doc.Meta); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if len(doc.Meta) == 0 {
		doc.Meta = nil
	}
	return nil
}
