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

package storage

import (
	"fmt"

	"github.com/poiesic/quickrag/core"
)

// MarshalDocument serializes a Document to bytes.
// The search score is transient and never stored.
func MarshalDocument(doc *core.Document) []byte {
	stored := *doc
	stored.Score = 0
	buf := make([]byte, core.DocumentMUS.Size(stored))
	core.DocumentMUS.Marshal(stored, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrSerializationFailed)
	}
	doc, n, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	if len(doc.Meta) == 0 {
		doc.Meta = nil
	}
	if len(doc.Embedding) == 0 {
		doc.Embedding = nil
	}
	return &doc, nil
}
