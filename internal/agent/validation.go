package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// ValidationAgentName is the stage identifier for structural validation.
const ValidationAgentName = "validation"

const ownerValidation = "validation-agent"

// ValidationAgent reads the generated workflow and delegates rule-checking
// to the validation service behind the workflow.Validator boundary. The
// workflow is never mutated; a slow or unreachable service becomes a failed,
// retryable stage rather than a crash.
type ValidationAgent struct {
	validator workflow.Validator
	store     *store.Store
	logger    *zap.Logger
}

// NewValidationAgent creates a validation agent.
func NewValidationAgent(v workflow.Validator, s *store.Store, logger *zap.Logger) *ValidationAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationAgent{validator: v, store: s, logger: logger.Named("validation-agent")}
}

// Name implements Agent.
func (a *ValidationAgent) Name() string { return ValidationAgentName }

// Initialize implements Agent.
func (a *ValidationAgent) Initialize() error {
	if a.validator == nil {
		return fmt.Errorf("validation agent requires a validator")
	}
	return nil
}

// Shutdown implements Agent.
func (a *ValidationAgent) Shutdown() error { return nil }

// Execute validates the generated workflow and stores the verdict.
func (a *ValidationAgent) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return deadlineResult(start, err)
	}

	graph, ok := store.GetAs[*workflow.Graph](a.store, StageKey(KeyGeneratedWorkflow, req.RequestID))
	if !ok {
		return failure(start, "no workflow available: workflow generation must run before validation", false)
	}

	verdict, err := a.validator.Validate(ctx, graph)
	if err != nil {
		a.logger.Warn("validation service failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return failure(start, fmt.Sprintf("validation service error: %v", err), true)
	}

	a.store.Set(StageKey(KeyValidationResult, req.RequestID), verdict, ownerValidation, StageTTL)

	a.logger.Debug("validated workflow",
		zap.String("request_id", req.RequestID),
		zap.Bool("valid", verdict.Valid),
		zap.String("complexity", string(verdict.Stats.Complexity)))

	return Result{
		Success:         true,
		Data:            verdict,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:      estimateTokens(graph.Name, graph.Description),
	}
}
