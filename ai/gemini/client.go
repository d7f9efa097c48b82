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

package gemini

import (
	"context"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// lazyClient creates the genai client on first use.
type lazyClient struct {
	apiKey string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func (l *lazyClient) get(ctx context.Context) (*genai.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(l.apiKey)}, l.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	l.client = client
	return client, nil
}

func (l *lazyClient) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}
