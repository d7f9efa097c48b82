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

package ai

import "errors"

var (
	// ErrCircuitOpen indicates a provider is failing and calls are short-circuited.
	ErrCircuitOpen = errors.New("provider circuit open")

	// ErrEmbeddingMismatch indicates a provider returned a different number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrEmptyCompletion indicates a provider returned no completion choices.
	ErrEmptyCompletion = errors.New("provider returned no completion")
)
