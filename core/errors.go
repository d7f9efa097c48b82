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
	"errors"
	"fmt"
)

// Request errors. Every failure surfaced to a caller of the ingestion
// core wraps exactly one of these.
var (
	// ErrUnknownProvider indicates a provider token outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidArguments indicates missing or extraneous provider arguments.
	ErrInvalidArguments = errors.New("invalid provider arguments")

	// ErrConversion indicates the uploaded input could not be converted to text.
	ErrConversion = errors.New("document conversion failed")

	// ErrPersistence indicates the pipeline definition could not be written.
	ErrPersistence = errors.New("pipeline definition could not be persisted")

	// ErrMalformedRequest indicates an unparseable request payload.
	ErrMalformedRequest = errors.New("malformed request")
)

// Domain validation errors
var (
	// ErrInvalidIdentifier indicates a pipeline identifier that is empty or not URL-safe.
	ErrInvalidIdentifier = errors.New("invalid pipeline identifier")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingEmbedding indicates a document reached the store without a vector.
	ErrMissingEmbedding = errors.New("document has no embedding")
)

// ArgumentError names the provider argument that made a request invalid.
// It unwraps to ErrInvalidArguments.
type ArgumentError struct {
	Provider Provider
	Key      string
	Problem  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s argument %q %s", ErrInvalidArguments, e.Provider, e.Key, e.Problem)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArguments
}

// Problems reported by ArgumentError.
const (
	ProblemMissing    = "is required"
	ProblemEmpty      = "must not be empty"
	ProblemUnexpected = "is not accepted"
	ProblemConflict   = "conflicts with the request"
)
