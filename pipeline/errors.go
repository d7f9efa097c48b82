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

import "errors"

var (
	// ErrStoreRequired is returned when a document store is not provided.
	ErrStoreRequired = errors.New("document store required")

	// ErrEmbedderRequired is returned when an embedding stage is not provided.
	ErrEmbedderRequired = errors.New("embedding stage required")

	// ErrRegistryRequired is returned when a stage registry is not provided.
	ErrRegistryRequired = errors.New("stage registry required")

	// ErrInvalidDefinition is returned when a pipeline definition is not a
	// single linear chain of the expected components.
	ErrInvalidDefinition = errors.New("invalid pipeline definition")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
