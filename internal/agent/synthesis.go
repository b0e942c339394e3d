package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// SynthesisAgentName is the stage identifier for workflow generation.
const SynthesisAgentName = "workflow-generation"

const ownerSynthesis = "synthesis-agent"

// Node layout constants for generated graphs. Purely cosmetic; editors
// render nodes left to right along the chain.
const (
	layoutOriginX = 250
	layoutStepX   = 220
	layoutY       = 300
)

// SynthesisAgent turns the selected pattern into a structurally complete
// workflow graph: exactly one trigger as the root, unique node names, and a
// linear main-connection chain through the remaining nodes.
type SynthesisAgent struct {
	catalog *catalog.Catalog
	store   *store.Store
	logger  *zap.Logger
}

// NewSynthesisAgent creates a workflow synthesis agent.
func NewSynthesisAgent(cat *catalog.Catalog, s *store.Store, logger *zap.Logger) *SynthesisAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SynthesisAgent{catalog: cat, store: s, logger: logger.Named("synthesis-agent")}
}

// Name implements Agent.
func (a *SynthesisAgent) Name() string { return SynthesisAgentName }

// Initialize implements Agent.
func (a *SynthesisAgent) Initialize() error { return nil }

// Shutdown implements Agent.
func (a *SynthesisAgent) Shutdown() error { return nil }

// Execute reads the selected pattern and emits a workflow graph. A missing
// pattern is a pipeline-ordering violation and fails the stage outright.
func (a *SynthesisAgent) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return deadlineResult(start, err)
	}

	match, ok := store.GetAs[PatternMatch](a.store, StageKey(KeySelectedPattern, req.RequestID))
	if !ok {
		return failure(start, "no pattern available: pattern discovery must run before workflow generation", false)
	}

	graph := a.synthesize(req, match)
	a.store.Set(StageKey(KeyGeneratedWorkflow, req.RequestID), graph, ownerSynthesis, StageTTL)

	a.logger.Debug("generated workflow",
		zap.String("request_id", req.RequestID),
		zap.String("pattern_id", match.PatternID),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("connections", graph.ConnectionCount()))

	return Result{
		Success:         true,
		Data:            graph,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:      estimateTokens(req.Goal, graph.Name, graph.Description),
	}
}

// synthesize builds the graph from the pattern's suggested node types.
func (a *SynthesisAgent) synthesize(req Request, match PatternMatch) *workflow.Graph {
	nodeTypes := a.normalizeTriggers(match.SuggestedNodes)

	nodes := make([]workflow.Node, 0, len(nodeTypes))
	used := make(map[string]int, len(nodeTypes))
	for i, nodeType := range nodeTypes {
		nodes = append(nodes, workflow.Node{
			Name:     a.uniqueName(nodeType, used),
			Type:     nodeType,
			Position: [2]float64{layoutOriginX + float64(i)*layoutStepX, layoutY},
		})
	}

	connections := make(map[string]workflow.ConnectionSet, len(nodes))
	for i := 0; i+1 < len(nodes); i++ {
		connections[nodes[i].Name] = workflow.ConnectionSet{
			Main: [][]workflow.Connection{{
				{Node: nodes[i+1].Name, Type: "main", Index: 0},
			}},
		}
	}

	description := match.Description
	if req.Goal != "" {
		description = req.Goal
	}

	return &workflow.Graph{
		Name:        match.PatternName,
		Description: description,
		Nodes:       nodes,
		Connections: connections,
		Settings:    map[string]any{"executionOrder": "v1"},
	}
}

// normalizeTriggers guarantees exactly one trigger node, placed first.
// Extra trigger types from the pattern are dropped; a pattern with none
// gets a manual trigger prepended.
func (a *SynthesisAgent) normalizeTriggers(suggested []string) []string {
	const manualTrigger = "n8n-nodes-base.manualTrigger"

	trigger := ""
	rest := make([]string, 0, len(suggested))
	for _, nodeType := range suggested {
		if a.catalog.IsTrigger(nodeType) {
			if trigger == "" {
				trigger = nodeType
			}
			continue
		}
		rest = append(rest, nodeType)
	}
	if trigger == "" {
		trigger = manualTrigger
	}
	return append([]string{trigger}, rest...)
}

// uniqueName derives a display name for a node type and disambiguates
// collisions with a numeric suffix, matching editor conventions.
func (a *SynthesisAgent) uniqueName(nodeType string, used map[string]int) string {
	base := nodeType
	if nt, ok := a.catalog.NodeType(nodeType); ok {
		base = nt.DisplayName
	}

	used[base]++
	if used[base] == 1 {
		return base
	}
	return fmt.Sprintf("%s %d", base, used[base])
}
