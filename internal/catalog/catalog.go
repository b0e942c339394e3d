// Package catalog provides the read-only node and pattern catalog consulted
// by the pipeline agents. Definitions are embedded at build time and loaded
// once at process start; there is no write access.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed patterns.yaml
var embeddedCatalog []byte

// Pattern is a named workflow archetype used to seed synthesis.
type Pattern struct {
	ID             string   `koanf:"id" json:"id"`
	Name           string   `koanf:"name" json:"name"`
	Description    string   `koanf:"description" json:"description"`
	Keywords       []string `koanf:"keywords" json:"keywords"`
	SuggestedNodes []string `koanf:"suggested_nodes" json:"suggested_nodes"`
}

// NodeType describes a known automation node type.
type NodeType struct {
	Type        string `koanf:"type" json:"type"`
	DisplayName string `koanf:"display_name" json:"display_name"`
	Trigger     bool   `koanf:"trigger" json:"trigger"`
}

type catalogFile struct {
	Patterns  []Pattern  `koanf:"patterns"`
	NodeTypes []NodeType `koanf:"node_types"`
}

// Catalog holds pattern and node-type definitions. Immutable after Load.
type Catalog struct {
	patterns  []Pattern
	nodeTypes map[string]NodeType
}

// Load parses the embedded catalog definitions.
func Load() (*Catalog, error) {
	return loadBytes(embeddedCatalog)
}

// loadBytes parses catalog definitions from raw YAML. Split out for tests.
func loadBytes(data []byte) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var file catalogFile
	if err := k.Unmarshal("", &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("catalog contains no patterns")
	}

	c := &Catalog{
		patterns:  file.Patterns,
		nodeTypes: make(map[string]NodeType, len(file.NodeTypes)),
	}

	seen := make(map[string]struct{}, len(file.Patterns))
	for _, p := range file.Patterns {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog pattern %q has no id", p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate pattern id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	for _, nt := range file.NodeTypes {
		if nt.Type == "" {
			return nil, fmt.Errorf("catalog node type with empty type field")
		}
		c.nodeTypes[nt.Type] = nt
	}

	return c, nil
}

// Patterns returns all patterns in registration order. Callers must not
// mutate the returned slice.
func (c *Catalog) Patterns() []Pattern {
	return c.patterns
}

// PatternByID looks up a pattern by its identifier.
func (c *Catalog) PatternByID(id string) (Pattern, bool) {
	for _, p := range c.patterns {
		if p.ID == id {
			return p, true
		}
	}
	return Pattern{}, false
}

// NodeType looks up node-type metadata by type name.
func (c *Catalog) NodeType(typeName string) (NodeType, bool) {
	nt, ok := c.nodeTypes[typeName]
	return nt, ok
}

// IsTrigger reports whether the given node type starts workflow execution.
// Unknown types fall back to a name heuristic so graphs built from node types
// outside the catalog still classify sensibly.
func (c *Catalog) IsTrigger(typeName string) bool {
	if nt, ok := c.nodeTypes[typeName]; ok {
		return nt.Trigger
	}
	lower := strings.ToLower(typeName)
	return strings.Contains(lower, "trigger") || strings.Contains(lower, "webhook")
}
