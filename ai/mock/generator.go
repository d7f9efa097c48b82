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

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/quickrag/ai"
)

// MockGenerator is a test double for ai.Generator. It records every prompt
// and answers with GenerateFunc or a fixed Answer.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)

	// Answer is returned when GenerateFunc is nil.
	Answer string

	mu      sync.Mutex
	prompts []string
	options []ai.GenerateOptions
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a generator that always answers with answer.
func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

// Generate implements ai.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, opts)
	}
	return m.Answer, nil
}

// Prompts returns every prompt received so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call.
func (m *MockGenerator) LastOptions() ai.GenerateOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return ai.GenerateOptions{}
	}
	return m.options[len(m.options)-1]
}
