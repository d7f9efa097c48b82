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

package archive

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotConfigured is returned when an archiver is missing required settings.
var ErrNotConfigured = errors.New("archive not configured")

// Archiver keeps a copy of an uploaded source next to its pipeline.
type Archiver interface {
	// Store saves data under key and returns where it can be fetched.
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Key returns the object key for a file uploaded to pipeline id.
// Only the base name of file is kept.
func Key(id, file string) string {
	name := path.Base(strings.ReplaceAll(file, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return "pipelines/" + id + "/" + name
}

// Nop discards everything.
type Nop struct{}

var _ Archiver = Nop{}

// Store implements Archiver.
func (Nop) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", nil
}
