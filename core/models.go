package core

import (
	"encoding/hex"
	"slices"

	"github.com/go-crypt/x/blake2b"
)

// DocumentID derives a deterministic identity key from content and metadata
// using BLAKE2b-256. Identical content with identical metadata always maps to
// the same key, which is what the duplicate policy compares on.
func DocumentID(content string, meta map[string]string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(content))

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		// NUL separators keep ("ab","c") distinct from ("a","bc")
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(meta[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Document is a unit of text flowing through the ingestion stages and
// stored in the vector store.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Meta      map[string]string `json:"meta,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
	Score     float32           `json:"score,omitempty"` // Populated by similarity search
}

// NewDocument creates a document whose ID is derived from its content and metadata.
func NewDocument(content string, meta map[string]string) *Document {
	return &Document{
		ID:      DocumentID(content, meta),
		Content: content,
		Meta:    meta,
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	if d.Meta != nil {
		out.Meta = make(map[string]string, len(d.Meta))
		for k, v := range d.Meta {
			out.Meta[k] = v
		}
	}
	if d.Embedding != nil {
		out.Embedding = slices.Clone(d.Embedding)
	}
	return &out
}

// DuplicatePolicy selects what a store does when a document key already exists.
type DuplicatePolicy int

const (
	// DuplicatePolicySkip leaves the existing entry untouched and counts the write as skipped.
	DuplicatePolicySkip DuplicatePolicy = iota
	// DuplicatePolicyOverwrite replaces the existing entry.
	DuplicatePolicyOverwrite
	// DuplicatePolicyFail aborts the write with a duplicate key error.
	DuplicatePolicyFail
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicatePolicySkip:
		return "skip"
	case DuplicatePolicyOverwrite:
		return "overwrite"
	case DuplicatePolicyFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p DuplicatePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// WriteResult reports what a store did with a batch of documents.
type WriteResult struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// Add accumulates another result into r.
func (r *WriteResult) Add(other WriteResult) {
	r.Written += other.Written
	r.Skipped += other.Skipped
}
