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
	"strings"
)

// Provider identifies the service supplying embedding or language models.
type Provider int

const (
	// ProviderOllama is a self-hosted Ollama server.
	ProviderOllama Provider = iota + 1
	// ProviderOpenAI is the OpenAI API or a compatible endpoint.
	ProviderOpenAI
	// ProviderGemini is Google's Gemini API.
	ProviderGemini
)

var providerTokens = map[Provider]string{
	ProviderOllama: "OLLAMA",
	ProviderOpenAI: "OPENAI",
	ProviderGemini: "GEMINI",
}

// Providers returns every supported provider in declaration order.
func Providers() []Provider {
	return []Provider{ProviderOllama, ProviderOpenAI, ProviderGemini}
}

// String returns the canonical upper-case token for the provider.
func (p Provider) String() string {
	if token, ok := providerTokens[p]; ok {
		return token
	}
	return fmt.Sprintf("Provider(%d)", int(p))
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	_, ok := providerTokens[p]
	return ok
}

// ParseProvider resolves a provider name. Matching ignores letter case but
// not surrounding whitespace; callers pass a clean token. Anything outside
// the supported set fails with ErrUnknownProvider.
func ParseProvider(name string) (Provider, error) {
	upper := strings.ToUpper(name)
	for _, p := range Providers() {
		if providerTokens[p] == upper {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// MarshalText implements encoding.TextMarshaler.
func (p Provider) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProvider, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
