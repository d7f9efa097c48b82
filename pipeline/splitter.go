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
	"strconv"
	"strings"

	"github.com/poiesic/quickrag/core"
)

// Default passage window.
const (
	DefaultSplitLength  = 5
	DefaultSplitOverlap = 1
)

// Metadata keys set on split documents.
const (
	MetaSourceID      = "source_id"
	MetaSplitID       = "split_id"
	MetaSplitIdxStart = "split_idx_start"
	MetaPageNumber    = "page_number"
)

// DocumentSplitter groups passages into overlapping windows. A passage is
// the text up to and including a blank line or a form feed; separators stay
// attached so concatenating all passages reproduces the input.
type DocumentSplitter struct {
	length  int
	overlap int
}

var _ Processor = DocumentSplitter{}

// NewDocumentSplitter creates a splitter with windows of length passages
// sharing overlap passages with the previous window.
func NewDocumentSplitter(length, overlap int) (DocumentSplitter, error) {
	if length < 1 {
		return DocumentSplitter{}, fmt.Errorf("split length must be positive, got %d", length)
	}
	if overlap < 0 || overlap >= length {
		return DocumentSplitter{}, fmt.Errorf("split overlap must be in [0, %d), got %d", length, overlap)
	}
	return DocumentSplitter{length: length, overlap: overlap}, nil
}

// Spec implements Component.
func (s DocumentSplitter) Spec() ComponentSpec {
	return ComponentSpec{
		Type: "pipeline.DocumentSplitter",
		Params: map[string]any{
			"split_by":      "passage",
			"split_length":  s.length,
			"split_overlap": s.overlap,
		},
	}
}

// Process implements Processor.
func (s DocumentSplitter) Process(ctx context.Context, docs []*core.Document) ([]*core.Document, error) {
	var out []*core.Document
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.split(doc)...)
	}
	return out, nil
}

func (s DocumentSplitter) split(doc *core.Document) []*core.Document {
	units := SplitPassages(doc.Content)
	if len(units) == 0 {
		return nil
	}

	// Character offset and page of every unit.
	offsets := make([]int, len(units))
	pages := make([]int, len(units))
	offset, page := 0, 1
	for i, u := range units {
		offsets[i] = offset
		pages[i] = page
		offset += len(u)
		page += strings.Count(u, PageSeparator)
	}

	step := s.length - s.overlap
	var out []*core.Document
	for start := 0; ; start += step {
		end := min(start+s.length, len(units))
		content := strings.Join(units[start:end], "")
		if strings.TrimSpace(content) != "" {
			meta := make(map[string]string, len(doc.Meta)+4)
			for k, v := range doc.Meta {
				meta[k] = v
			}
			meta[MetaSourceID] = doc.ID
			meta[MetaSplitID] = strconv.Itoa(len(out))
			meta[MetaSplitIdxStart] = strconv.Itoa(offsets[start])
			meta[MetaPageNumber] = strconv.Itoa(pages[start])
			out = append(out, core.NewDocument(content, meta))
		}
		if end >= len(units) {
			break
		}
	}
	return out
}

// SplitPassages cuts text after every passage or page separator.
func SplitPassages(text string) []string {
	var units []string
	for len(text) > 0 {
		j := nextSeparator(text)
		if j < 0 {
			units = append(units, text)
			break
		}
		units = append(units, text[:j])
		text = text[j:]
	}
	return units
}

// nextSeparator returns the index just past the first passage or page
// separator, or -1.
func nextSeparator(text string) int {
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\f':
			return i + 1
		case strings.HasPrefix(text[i:], PassageSeparator):
			return i + 2
		}
	}
	return -1
}
