package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/orchestrator"
	"github.com/fyrsmithlabs/workflowd/internal/router"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerOrchestrationTools()
	s.registerValidationTools()
	s.registerRoutingTools()
}

// ===== ORCHESTRATION TOOLS =====

type orchestrateInput struct {
	// Goal is a pointer so an absent field is distinguishable from an
	// explicit empty string: the former is a caller error, the latter runs
	// the pipeline and degrades to a low-confidence result.
	Goal       *string        `json:"goal,omitempty" jsonschema:"required,Natural-language description of the workflow to build"`
	Context    map[string]any `json:"context,omitempty" jsonschema:"Optional execution context passed through to the pipeline"`
	AllowRetry bool           `json:"allow_retry,omitempty" jsonschema:"Retry the run when a stage fails with a transient error"`
	MaxRetries int            `json:"max_retries,omitempty" jsonschema:"Maximum retry attempts when allow_retry is set (capped by server config)"`
}

type orchestrateOutput struct {
	Success          bool                       `json:"success" jsonschema:"True when all three stages completed"`
	Goal             string                     `json:"goal" jsonschema:"The goal this run processed, echoed back"`
	RequestID        string                     `json:"request_id" jsonschema:"Correlation ID for this run"`
	Workflow         *workflow.Graph            `json:"workflow,omitempty" jsonschema:"Generated workflow (only on success)"`
	ValidationResult *workflow.Verdict          `json:"validation_result,omitempty" jsonschema:"Structural validation verdict (only on success)"`
	Stages           []orchestrator.StageRecord `json:"stages" jsonschema:"Per-stage outcomes in execution order"`
	ExecutionTimeMs  int64                      `json:"execution_time_ms" jsonschema:"Wall-clock duration of the run"`
	TokensUsed       int                        `json:"tokens_used" jsonschema:"Estimated token usage across stages"`
	Errors           []string                   `json:"errors" jsonschema:"Stage failure messages, empty on success"`
}

type statusOutput struct {
	Initialized       bool           `json:"initialized" jsonschema:"True once the pipeline has been initialized"`
	AgentsReady       bool           `json:"agents_ready" jsonschema:"True when all agents are ready to execute"`
	SharedMemoryKeys  int            `json:"shared_memory_keys" jsonschema:"Number of live entries in the shared store"`
	SharedMemoryOwner map[string]int `json:"shared_memory_by_owner" jsonschema:"Live entry counts grouped by owner tag"`
}

type clearStateOutput struct {
	Removed int `json:"removed" jsonschema:"Number of orchestration entries removed from the shared store"`
}

func (s *Server) registerOrchestrationTools() {
	// orchestrate_workflow
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "orchestrate_workflow",
		Description: "Run the full pipeline: discover a pattern for the goal, generate a workflow, and validate its structure",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args orchestrateInput) (*mcp.CallToolResult, orchestrateOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "orchestrate_workflow")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "orchestrate_workflow")
			s.metrics.RecordInvocation(ctx, "orchestrate_workflow", time.Since(start), toolErr)
		}()

		if args.Goal == nil {
			toolErr = fmt.Errorf("goal is required")
			return nil, orchestrateOutput{}, toolErr
		}
		goal := *args.Goal

		var result *orchestrator.Result
		if args.AllowRetry {
			retries := args.MaxRetries
			if retries <= 0 || retries > s.maxRetries {
				retries = s.maxRetries
			}
			result = s.orchestrator.OrchestrateWithRetry(ctx, goal, args.Context, retries)
		} else {
			result = s.orchestrator.Orchestrate(ctx, goal, args.Context)
		}

		// Feed the outcome back into the router so future routing decisions
		// reflect how the agent path actually performs.
		s.router.Record(router.PathAgent, result.Success, time.Since(start), map[string]any{
			"request_id": result.RequestID,
		})

		return nil, orchestrateOutput{
			Success:          result.Success,
			Goal:             result.Goal,
			RequestID:        result.RequestID,
			Workflow:         result.Workflow,
			ValidationResult: result.ValidationResult,
			Stages:           result.Stages,
			ExecutionTimeMs:  result.ExecutionTimeMs,
			TokensUsed:       result.TokensUsed,
			Errors:           result.Errors,
		}, nil
	})

	// get_orchestration_status
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_orchestration_status",
		Description: "Report pipeline readiness and shared memory statistics without side effects",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, statusOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "get_orchestration_status")
		defer func() {
			s.metrics.DecrementActive(ctx, "get_orchestration_status")
			s.metrics.RecordInvocation(ctx, "get_orchestration_status", time.Since(start), nil)
		}()

		status := s.orchestrator.Status()
		return nil, statusOutput{
			Initialized:       status.Initialized,
			AgentsReady:       status.AgentsReady,
			SharedMemoryKeys:  status.SharedMemoryStats.TotalKeys,
			SharedMemoryOwner: status.SharedMemoryStats.ByOwner,
		}, nil
	})

	// clear_orchestration_state
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_orchestration_state",
		Description: "Remove all orchestration state from shared memory, leaving routing history intact",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, clearStateOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "clear_orchestration_state")
		defer func() {
			s.metrics.DecrementActive(ctx, "clear_orchestration_state")
			s.metrics.RecordInvocation(ctx, "clear_orchestration_state", time.Since(start), nil)
		}()

		removed := s.orchestrator.ClearState()
		s.logger.Info("orchestration state cleared", zap.Int("removed", removed))
		return nil, clearStateOutput{Removed: removed}, nil
	})
}

// ===== VALIDATION TOOLS =====

type validateInput struct {
	Workflow workflow.Graph `json:"workflow" jsonschema:"required,Workflow definition to validate (nodes plus connections)"`
}

type validateOutput struct {
	Valid           bool             `json:"valid" jsonschema:"True when the workflow has no critical issues"`
	Errors          []workflow.Issue `json:"errors" jsonschema:"Critical and error-severity issues"`
	Warnings        []workflow.Issue `json:"warnings" jsonschema:"Non-blocking issues"`
	NodeCount       int              `json:"node_count" jsonschema:"Number of nodes in the workflow"`
	ConnectionCount int              `json:"connection_count" jsonschema:"Number of connections in the workflow"`
	Complexity      string           `json:"complexity" jsonschema:"Complexity class: simple, medium, or complex"`
}

func (s *Server) registerValidationTools() {
	// validate_workflow_structure
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "validate_workflow_structure",
		Description: "Validate an existing workflow's structure without running the generation pipeline",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args validateInput) (*mcp.CallToolResult, validateOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "validate_workflow_structure")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "validate_workflow_structure")
			s.metrics.RecordInvocation(ctx, "validate_workflow_structure", time.Since(start), toolErr)
		}()

		verdict, err := s.validator.Validate(ctx, &args.Workflow)
		if err != nil {
			toolErr = fmt.Errorf("validation failed: %w", err)
			return nil, validateOutput{}, toolErr
		}

		return nil, validateOutput{
			Valid:           verdict.Valid,
			Errors:          verdict.Errors,
			Warnings:        verdict.Warnings,
			NodeCount:       verdict.NodeCount,
			ConnectionCount: verdict.ConnectionCount,
			Complexity:      string(verdict.Stats.Complexity),
		}, nil
	})
}

// ===== ROUTING TOOLS =====

type routeInput struct {
	Goal         string          `json:"goal,omitempty" jsonschema:"Natural-language goal, present when the caller wants a workflow built"`
	Workflow     *workflow.Graph `json:"workflow,omitempty" jsonschema:"Pre-built workflow, present when the caller already has one"`
	ForceAgent   bool            `json:"force_agent,omitempty" jsonschema:"Force the agent pipeline path"`
	ForceHandler bool            `json:"force_handler,omitempty" jsonschema:"Force the direct handler path"`
}

type routeOutput struct {
	SelectedPath string  `json:"selected_path" jsonschema:"Recommended path: agent or handler"`
	Confidence   float64 `json:"confidence" jsonschema:"Confidence in the recommendation, 0 to 1"`
	FallbackPath string  `json:"fallback_path,omitempty" jsonschema:"Path to try if the selected one fails"`
	Reason       string  `json:"reason" jsonschema:"Why this path was selected"`
}

type routingStatsOutput struct {
	SuccessRateByPath map[string]float64 `json:"success_rate_by_path" jsonschema:"Success rate per path over retained history"`
	AvgTimeByPath     map[string]float64 `json:"avg_time_by_path" jsonschema:"Average execution time in milliseconds per path"`
	SamplesByPath     map[string]int     `json:"samples_by_path" jsonschema:"Retained sample count per path"`
	PreferredPath     string             `json:"preferred_path" jsonschema:"Path with the better success rate"`
}

type clearHistoryOutput struct {
	Removed int `json:"removed" jsonschema:"Number of execution metrics removed"`
}

func (s *Server) registerRoutingTools() {
	// get_routing_recommendation
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_routing_recommendation",
		Description: "Recommend agent pipeline vs direct handler for a request, based on its shape and historical outcomes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args routeInput) (*mcp.CallToolResult, routeOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "get_routing_recommendation")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "get_routing_recommendation")
			s.metrics.RecordInvocation(ctx, "get_routing_recommendation", time.Since(start), toolErr)
		}()

		if args.ForceAgent && args.ForceHandler {
			toolErr = fmt.Errorf("invalid request: force_agent and force_handler are mutually exclusive")
			return nil, routeOutput{}, toolErr
		}

		decision := s.router.Recommend(router.Request{
			Goal:         args.Goal,
			Workflow:     args.Workflow,
			ForceAgent:   args.ForceAgent,
			ForceHandler: args.ForceHandler,
		})

		return nil, routeOutput{
			SelectedPath: string(decision.SelectedPath),
			Confidence:   decision.Confidence,
			FallbackPath: string(decision.FallbackPath),
			Reason:       decision.Reason,
		}, nil
	})

	// get_routing_statistics
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_routing_statistics",
		Description: "Report per-path success rates, timings, and sample counts from routing history",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, routingStatsOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "get_routing_statistics")
		defer func() {
			s.metrics.DecrementActive(ctx, "get_routing_statistics")
			s.metrics.RecordInvocation(ctx, "get_routing_statistics", time.Since(start), nil)
		}()

		stats := s.router.Statistics()

		out := routingStatsOutput{
			SuccessRateByPath: make(map[string]float64, len(stats.SuccessRateByPath)),
			AvgTimeByPath:     make(map[string]float64, len(stats.AvgTimeByPath)),
			SamplesByPath:     make(map[string]int, len(stats.SamplesByPath)),
			PreferredPath:     string(stats.PreferredPath),
		}
		for path, rate := range stats.SuccessRateByPath {
			out.SuccessRateByPath[string(path)] = rate
		}
		for path, avg := range stats.AvgTimeByPath {
			out.AvgTimeByPath[string(path)] = avg
		}
		for path, n := range stats.SamplesByPath {
			out.SamplesByPath[string(path)] = n
		}
		return nil, out, nil
	})

	// clear_routing_history
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_routing_history",
		Description: "Remove all recorded execution metrics, resetting routing decisions to their defaults",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, clearHistoryOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "clear_routing_history")
		defer func() {
			s.metrics.DecrementActive(ctx, "clear_routing_history")
			s.metrics.RecordInvocation(ctx, "clear_routing_history", time.Since(start), nil)
		}()

		removed := s.router.ClearHistory()
		s.logger.Info("routing history cleared", zap.Int("removed", removed))
		return nil, clearHistoryOutput{Removed: removed}, nil
	})
}
