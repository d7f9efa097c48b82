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

package answer

import "errors"

var (
	// ErrStoreRequired is returned when a document store is not provided.
	ErrStoreRequired = errors.New("document store required")

	// ErrEmbedderRequired is returned when a query embedder is not provided.
	ErrEmbedderRequired = errors.New("query embedder required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrInvalidTopK is returned when TopK is outside 1..MaxTopK.
	ErrInvalidTopK = errors.New("top_k out of range")

	// ErrInvalidTemperature is returned when Temperature is outside 0..1.
	ErrInvalidTemperature = errors.New("temperature out of range")
)
