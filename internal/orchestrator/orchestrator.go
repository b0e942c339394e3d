package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/agent"
	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Config tunes pipeline execution.
type Config struct {
	// StageTimeout bounds each stage's execution. A stage that exceeds it
	// fails with a retryable timeout instead of stalling the pipeline.
	// Zero disables the bound, leaving only the caller's deadline.
	StageTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{StageTimeout: 30 * time.Second}
}

// Orchestrator runs the pipeline stages as a fixed, ordered list. Agents are
// constructed once and reused across runs; per-request state lives only in
// the shared store under request-scoped keys, so concurrent Orchestrate
// calls do not interfere.
type Orchestrator struct {
	agents       []agent.Agent
	store        *store.Store
	logger       *zap.Logger
	stageTimeout time.Duration
	initialized  atomic.Bool
}

// New wires the three concrete agents in pipeline order.
func New(s *store.Store, cat *catalog.Catalog, validator workflow.Validator, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("orchestrator")

	return &Orchestrator{
		agents: []agent.Agent{
			agent.NewPatternAgent(cat, s, logger),
			agent.NewSynthesisAgent(cat, s, logger),
			agent.NewValidationAgent(validator, s, logger),
		},
		store:        s,
		logger:       logger,
		stageTimeout: cfg.StageTimeout,
	}
}

// Initialize prepares all agents. Idempotent.
func (o *Orchestrator) Initialize() error {
	for _, a := range o.agents {
		if err := a.Initialize(); err != nil {
			return fmt.Errorf("initialize %s: %w", a.Name(), err)
		}
	}
	o.initialized.Store(true)
	return nil
}

// Shutdown stops all agents in reverse order.
func (o *Orchestrator) Shutdown() error {
	var firstErr error
	for i := len(o.agents) - 1; i >= 0; i-- {
		if err := o.agents[i].Shutdown(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown %s: %w", o.agents[i].Name(), err)
		}
	}
	o.initialized.Store(false)
	return firstErr
}

// Orchestrate runs the three stages strictly in order. It never panics:
// every failure mode is encoded in the returned Result. The result always
// carries exactly one StageRecord per stage in fixed order; stages that
// never ran due to an upstream failure are recorded as skipped.
func (o *Orchestrator) Orchestrate(ctx context.Context, goal string, reqContext map[string]any) *Result {
	start := time.Now()
	requestID := uuid.NewString()

	result := &Result{
		Goal:      goal,
		RequestID: requestID,
		Stages:    make([]StageRecord, 0, len(o.agents)),
		Errors:    []string{},
	}

	req := agent.Request{Goal: goal, Context: reqContext, RequestID: requestID}

	o.logger.Info("starting orchestration",
		zap.String("request_id", requestID),
		zap.Int("goal_length", len(goal)))

	failed := false
	for _, a := range o.agents {
		if failed {
			result.Stages = append(result.Stages, StageRecord{
				Stage:   Stage(a.Name()),
				Success: false,
				Skipped: true,
				Error:   "not run: upstream stage failed",
			})
			continue
		}

		stageResult := o.runStage(ctx, a, req)
		record := StageRecord{
			Stage:           Stage(a.Name()),
			Success:         stageResult.Success,
			Error:           stageResult.Error,
			Retryable:       stageResult.Retryable,
			ExecutionTimeMs: stageResult.ExecutionTimeMs,
			TokensUsed:      stageResult.TokensUsed,
			Result:          stageResult.Data,
		}
		result.Stages = append(result.Stages, record)
		result.TokensUsed += stageResult.TokensUsed

		if !stageResult.Success {
			failed = true
			result.Errors = append(result.Errors,
				fmt.Sprintf("stage %s failed: %s", a.Name(), stageResult.Error))
			o.logger.Warn("stage failed",
				zap.String("request_id", requestID),
				zap.String("stage", a.Name()),
				zap.String("error", stageResult.Error))
		}
	}

	result.Success = !failed
	if result.Success {
		result.Workflow, _ = store.GetAs[*workflow.Graph](o.store, agent.StageKey(agent.KeyGeneratedWorkflow, requestID))
		result.ValidationResult, _ = store.GetAs[*workflow.Verdict](o.store, agent.StageKey(agent.KeyValidationResult, requestID))
	}

	// Wall-clock total, not the sum of stages: orchestration overhead counts.
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	o.logger.Info("orchestration finished",
		zap.String("request_id", requestID),
		zap.Bool("success", result.Success),
		zap.Int64("duration_ms", result.ExecutionTimeMs),
		zap.Int("tokens_used", result.TokensUsed))

	return result
}

// OrchestrateWithRetry reruns failed orchestrations whose failing stage was
// retryable (e.g. validation service unreachable), up to maxRetries extra
// attempts. Ordering violations and input problems are never retried.
func (o *Orchestrator) OrchestrateWithRetry(ctx context.Context, goal string, reqContext map[string]any, maxRetries int) *Result {
	result := o.Orchestrate(ctx, goal, reqContext)
	for attempt := 0; attempt < maxRetries && !result.Success && result.retryable(); attempt++ {
		if ctx.Err() != nil {
			break
		}
		o.logger.Info("retrying orchestration",
			zap.String("goal", goal),
			zap.Int("attempt", attempt+1))
		result = o.Orchestrate(ctx, goal, reqContext)
	}
	return result
}

// runStage executes one agent under the stage timeout, with panic
// containment. A panicking stage is converted into a failed result so it can
// never take down the orchestrator.
func (o *Orchestrator) runStage(ctx context.Context, a agent.Agent, req agent.Request) (res agent.Result) {
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("stage panicked",
				zap.String("stage", a.Name()),
				zap.Any("panic", r))
			res = agent.Result{
				Success: false,
				Error:   fmt.Sprintf("stage %s panicked: %v", a.Name(), r),
			}
		}
	}()
	return a.Execute(ctx, req)
}

// Status reports readiness without side effects.
func (o *Orchestrator) Status() Status {
	return Status{
		Initialized:       o.initialized.Load(),
		AgentsReady:       o.initialized.Load(),
		SharedMemoryStats: o.store.Stats(),
	}
}

// ClearState deletes the orchestrator's well-known keys, bare and across all
// request namespaces, leaving everything else in the store untouched.
// Callable between test runs or user sessions without a process restart.
func (o *Orchestrator) ClearState() int {
	removed := 0
	for _, prefix := range []string{
		agent.KeySelectedPattern,
		agent.KeyGeneratedWorkflow,
		agent.KeyValidationResult,
	} {
		o.store.Delete(prefix)
		removed += o.store.DeleteMatching(prefix + ":*")
	}
	o.logger.Debug("cleared orchestration state", zap.Int("removed", removed))
	return removed
}
