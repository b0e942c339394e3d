// Package workflow defines the workflow graph model shared by the synthesis
// and validation stages, and the structural validation boundary.
package workflow

// Node is a single step in a workflow graph. Names are unique within a graph.
type Node struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Position   [2]float64     `json:"position,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Connection is a directed edge target. Type is "main" for data-flow edges.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// ConnectionSet groups the outgoing edges of one source node. Main is indexed
// by output slot, each slot fanning out to zero or more targets.
type ConnectionSet struct {
	Main [][]Connection `json:"main"`
}

// Graph is a structurally complete workflow definition.
type Graph struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Nodes       []Node                   `json:"nodes"`
	Connections map[string]ConnectionSet `json:"connections,omitempty"`
	Settings    map[string]any           `json:"settings,omitempty"`
}

// NodeByName returns the node with the given name.
func (g *Graph) NodeByName(name string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// NodeNames returns the set of node names in the graph.
func (g *Graph) NodeNames() map[string]struct{} {
	names := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.Name] = struct{}{}
	}
	return names
}

// ConnectionCount returns the total number of edge targets across all
// sources and output slots.
func (g *Graph) ConnectionCount() int {
	count := 0
	for _, set := range g.Connections {
		for _, slot := range set.Main {
			count += len(slot)
		}
	}
	return count
}
