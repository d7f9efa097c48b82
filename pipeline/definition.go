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

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/poiesic/quickrag/core"
	"gopkg.in/yaml.v3"
)

// DefinitionFileSuffix is appended to the pipeline identifier to name the
// persisted definition.
const DefinitionFileSuffix = "_data_ingestion_pipeline.yaml"

// MetaPipelineID is the definition metadata key holding the identifier.
const MetaPipelineID = "pipeline_id"

// FileName returns the definition file name for id.
func FileName(id string) string {
	return id + DefinitionFileSuffix
}

// Definition is the serializable form of an assembled pipeline: named
// components in execution order and the connections between them.
type Definition struct {
	Metadata    map[string]string `yaml:"metadata"`
	Components  Components        `yaml:"components"`
	Connections []Connection      `yaml:"connections"`
}

// NamedComponent is a component spec with its name in the pipeline.
type NamedComponent struct {
	Name string
	ComponentSpec
}

// Components keeps its order when encoded as a YAML mapping.
type Components []NamedComponent

// Connection links the output of one component to the input of the next.
type Connection struct {
	Sender   string `yaml:"sender"`
	Receiver string `yaml:"receiver"`
}

// MarshalYAML implements yaml.Marshaler.
func (c Components) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, nc := range c {
		var value yaml.Node
		if err := value.Encode(nc.ComponentSpec); err != nil {
			return nil, err
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: nc.Name}
		node.Content = append(node.Content, key, &value)
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Components) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("components: expected a mapping, got %v", value.ShortTag())
	}
	out := make(Components, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var spec ComponentSpec
		if err := value.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("component %q: %w", value.Content[i].Value, err)
		}
		out = append(out, NamedComponent{Name: value.Content[i].Value, ComponentSpec: spec})
	}
	*c = out
	return nil
}

// newDefinition builds the linear definition for the given named stages.
func newDefinition(id string, names []string, components []Component) *Definition {
	def := &Definition{
		Metadata: map[string]string{MetaPipelineID: id},
	}
	for i, name := range names {
		def.Components = append(def.Components, NamedComponent{Name: name, ComponentSpec: components[i].Spec()})
		if i > 0 {
			def.Connections = append(def.Connections, Connection{
				Sender:   names[i-1] + ".documents",
				Receiver: name + ".documents",
			})
		}
	}
	return def
}

// ID returns the pipeline identifier.
func (d *Definition) ID() string {
	return d.Metadata[MetaPipelineID]
}

// Component returns the spec of the named component.
func (d *Definition) Component(name string) (ComponentSpec, bool) {
	for _, nc := range d.Components {
		if nc.Name == name {
			return nc.ComponentSpec, true
		}
	}
	return ComponentSpec{}, false
}

// Chain follows the connections from the single component without inputs
// and returns the component names in order. It fails unless the
// connections form exactly one path through every component.
func (d *Definition) Chain() ([]string, error) {
	known := make(map[string]bool, len(d.Components))
	for _, nc := range d.Components {
		if nc.Name == "" || known[nc.Name] {
			return nil, fmt.Errorf("%w: duplicate or empty component name %q", ErrInvalidDefinition, nc.Name)
		}
		known[nc.Name] = true
	}
	if len(d.Components) == 0 {
		return nil, fmt.Errorf("%w: no components", ErrInvalidDefinition)
	}
	if len(d.Connections) != len(d.Components)-1 {
		return nil, fmt.Errorf("%w: %d components need %d connections, found %d",
			ErrInvalidDefinition, len(d.Components), len(d.Components)-1, len(d.Connections))
	}

	next := make(map[string]string, len(d.Connections))
	hasInput := make(map[string]bool, len(d.Connections))
	for _, conn := range d.Connections {
		from, to := endpoint(conn.Sender), endpoint(conn.Receiver)
		if !known[from] || !known[to] {
			return nil, fmt.Errorf("%w: connection %s -> %s references an unknown component",
				ErrInvalidDefinition, conn.Sender, conn.Receiver)
		}
		if _, dup := next[from]; dup {
			return nil, fmt.Errorf("%w: %s has more than one output", ErrInvalidDefinition, from)
		}
		if hasInput[to] {
			return nil, fmt.Errorf("%w: %s has more than one input", ErrInvalidDefinition, to)
		}
		next[from] = to
		hasInput[to] = true
	}

	var start string
	for _, nc := range d.Components {
		if !hasInput[nc.Name] {
			if start != "" {
				return nil, fmt.Errorf("%w: more than one entry point", ErrInvalidDefinition)
			}
			start = nc.Name
		}
	}
	if start == "" {
		return nil, fmt.Errorf("%w: no entry point", ErrInvalidDefinition)
	}

	chain := []string{start}
	for cur := start; ; {
		to, ok := next[cur]
		if !ok {
			break
		}
		if slices.Contains(chain, to) {
			return nil, fmt.Errorf("%w: cycle at %s", ErrInvalidDefinition, to)
		}
		chain = append(chain, to)
		cur = to
	}
	if len(chain) != len(d.Components) {
		return nil, fmt.Errorf("%w: path covers %d of %d components", ErrInvalidDefinition, len(chain), len(d.Components))
	}
	return chain, nil
}

// Validate checks the identifier and that the components form the
// ingestion chain converter -> cleaner -> splitter -> embedder -> writer.
func (d *Definition) Validate() error {
	if err := core.ValidatePipelineID(d.ID()); err != nil {
		return err
	}
	chain, err := d.Chain()
	if err != nil {
		return err
	}
	if !slices.Equal(chain, StageOrder()) {
		return fmt.Errorf("%w: stages %v, want %v", ErrInvalidDefinition, chain, StageOrder())
	}
	return nil
}

// Marshal encodes the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// LoadDefinition reads and validates a persisted definition.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func endpoint(socket string) string {
	name, _, _ := strings.Cut(socket, ".")
	return name
}
