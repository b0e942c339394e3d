package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
)

// Validator is the boundary to the structural validation service. The
// validation stage treats it as a black box: implementations may run in
// process or call out to a remote service, and callers must tolerate
// failure without crashing.
type Validator interface {
	Validate(ctx context.Context, graph *Graph) (*Verdict, error)
}

// StructuralValidator is the default in-process Validator. It checks the
// structural invariants every runnable workflow must satisfy: connection
// references resolve, node names are unique, and a trigger node exists.
// It never mutates the graph it is given.
type StructuralValidator struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewStructuralValidator creates a validator backed by the node catalog.
func NewStructuralValidator(cat *catalog.Catalog, logger *zap.Logger) *StructuralValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructuralValidator{catalog: cat, logger: logger}
}

// Validate checks the graph and returns a verdict. The returned error is
// non-nil only for validator-level failures (e.g. cancelled context), never
// for findings about the graph itself.
func (v *StructuralValidator) Validate(ctx context.Context, graph *Graph) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, fmt.Errorf("workflow graph is nil")
	}

	verdict := &Verdict{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	v.checkNodes(graph, verdict)
	v.checkConnections(graph, verdict)
	v.checkTrigger(graph, verdict)
	v.checkReachability(graph, verdict)

	verdict.NodeCount = len(graph.Nodes)
	verdict.ConnectionCount = graph.ConnectionCount()
	verdict.Stats = Stats{
		TotalNodes:       verdict.NodeCount,
		TotalConnections: verdict.ConnectionCount,
		Complexity:       ClassifyComplexity(verdict.NodeCount, verdict.ConnectionCount),
	}
	verdict.Valid = !verdict.HasCritical()

	v.logger.Debug("validated workflow structure",
		zap.String("workflow", graph.Name),
		zap.Bool("valid", verdict.Valid),
		zap.Int("errors", len(verdict.Errors)),
		zap.Int("warnings", len(verdict.Warnings)))

	return verdict, nil
}

func (v *StructuralValidator) checkNodes(graph *Graph, verdict *Verdict) {
	if len(graph.Nodes) == 0 {
		verdict.Errors = append(verdict.Errors, Issue{
			Type:     "empty-workflow",
			Message:  "workflow has no nodes",
			Severity: SeverityCritical,
		})
		return
	}

	seen := make(map[string]struct{}, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if node.Name == "" {
			verdict.Errors = append(verdict.Errors, Issue{
				Type:     "unnamed-node",
				Message:  fmt.Sprintf("node of type %q has no name", node.Type),
				Severity: SeverityCritical,
			})
			continue
		}
		if _, dup := seen[node.Name]; dup {
			verdict.Errors = append(verdict.Errors, Issue{
				Type:     "duplicate-node-name",
				Message:  fmt.Sprintf("node name %q is used more than once", node.Name),
				Severity: SeverityCritical,
			})
		}
		seen[node.Name] = struct{}{}

		if v.catalog != nil {
			if _, known := v.catalog.NodeType(node.Type); !known {
				verdict.Warnings = append(verdict.Warnings, Issue{
					Type:     "unknown-node-type",
					Message:  fmt.Sprintf("node %q has unrecognized type %q", node.Name, node.Type),
					Severity: SeverityWarning,
				})
			}
		}
	}
}

func (v *StructuralValidator) checkConnections(graph *Graph, verdict *Verdict) {
	names := graph.NodeNames()

	for source, set := range graph.Connections {
		if _, ok := names[source]; !ok {
			verdict.Errors = append(verdict.Errors, Issue{
				Type:     "invalid-connection-source",
				Message:  fmt.Sprintf("connections reference unknown source node %q", source),
				Severity: SeverityCritical,
			})
		}
		for slot, targets := range set.Main {
			for _, conn := range targets {
				if _, ok := names[conn.Node]; !ok {
					verdict.Errors = append(verdict.Errors, Issue{
						Type:     "invalid-connection-target",
						Message:  fmt.Sprintf("connection from %q (slot %d) references unknown node %q", source, slot, conn.Node),
						Severity: SeverityCritical,
					})
				}
				if conn.Type != "" && conn.Type != "main" {
					verdict.Warnings = append(verdict.Warnings, Issue{
						Type:     "unexpected-connection-type",
						Message:  fmt.Sprintf("connection from %q to %q has type %q, expected \"main\"", source, conn.Node, conn.Type),
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
}

func (v *StructuralValidator) checkTrigger(graph *Graph, verdict *Verdict) {
	if len(graph.Nodes) == 0 {
		return
	}
	for _, node := range graph.Nodes {
		if v.isTrigger(node.Type) {
			return
		}
	}
	verdict.Errors = append(verdict.Errors, Issue{
		Type:     "missing-trigger",
		Message:  "workflow has no trigger node and can never start",
		Severity: SeverityCritical,
	})
}

// checkReachability flags non-trigger nodes that no connection ever reaches.
// Orphans are not fatal: the workflow still runs, the node just never fires.
func (v *StructuralValidator) checkReachability(graph *Graph, verdict *Verdict) {
	if len(graph.Nodes) <= 1 {
		return
	}

	targeted := make(map[string]struct{})
	for _, set := range graph.Connections {
		for _, slot := range set.Main {
			for _, conn := range slot {
				targeted[conn.Node] = struct{}{}
			}
		}
	}

	for _, node := range graph.Nodes {
		if v.isTrigger(node.Type) {
			continue
		}
		if _, ok := targeted[node.Name]; !ok {
			verdict.Warnings = append(verdict.Warnings, Issue{
				Type:     "orphan-node",
				Message:  fmt.Sprintf("node %q is never targeted by any connection", node.Name),
				Severity: SeverityWarning,
			})
		}
	}
}

func (v *StructuralValidator) isTrigger(nodeType string) bool {
	if v.catalog != nil {
		return v.catalog.IsTrigger(nodeType)
	}
	return false
}
