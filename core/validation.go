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

package core

import (
	"fmt"
)

// ValidatePipelineID checks that an identifier can be used verbatim in a
// file name and a URL path segment.
//
// Validation rules:
//   - must not be empty
//   - only unreserved URL characters: A-Z a-z 0-9 - . _ ~
//   - must not be "." or ".."
func ValidatePipelineID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: identifier is empty", ErrInvalidIdentifier)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: %q is a path component", ErrInvalidIdentifier, id)
	}
	for i := 0; i < len(id); i++ {
		if !isUnreserved(id[i]) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidIdentifier, id, id[i])
		}
	}
	return nil
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// ValidateDocument validates a Document before it is written to a store.
//
// Validation rules:
//   - Content must not be empty
//   - ID must not be empty
//   - Embedding must be present
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingEmbedding)
	}
	return nil
}
