// Package orchestrator sequences the three pipeline stages and aggregates
// their results. Stages run strictly in order; a failed stage short-circuits
// the pipeline but every stage still appears in the result, so callers can
// always tell which stage failed and why without stack traces.
package orchestrator

import (
	"github.com/fyrsmithlabs/workflowd/internal/agent"
	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Stage identifies one step of the pipeline.
type Stage string

const (
	StagePatternDiscovery   Stage = agent.PatternAgentName
	StageWorkflowGeneration Stage = agent.SynthesisAgentName
	StageValidation         Stage = agent.ValidationAgentName
)

// AllStages returns the stages in execution order.
func AllStages() []Stage {
	return []Stage{StagePatternDiscovery, StageWorkflowGeneration, StageValidation}
}

// StageRecord captures the outcome of one stage. Records exist for every
// stage of a run, including stages that never ran because an earlier one
// failed; those are marked Skipped.
type StageRecord struct {
	Stage           Stage  `json:"stage"`
	Success         bool   `json:"success"`
	Skipped         bool   `json:"skipped,omitempty"`
	Error           string `json:"error,omitempty"`
	Retryable       bool   `json:"retryable,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	TokensUsed      int    `json:"tokens_used"`
	Result          any    `json:"result,omitempty"`
}

// Result aggregates a full orchestration run.
type Result struct {
	Goal             string            `json:"goal"`
	RequestID        string            `json:"request_id"`
	Success          bool              `json:"success"`
	Workflow         *workflow.Graph   `json:"workflow,omitempty"`
	ValidationResult *workflow.Verdict `json:"validation_result,omitempty"`
	Stages           []StageRecord     `json:"stages"`
	ExecutionTimeMs  int64             `json:"execution_time_ms"`
	TokensUsed       int               `json:"tokens_used"`
	Errors           []string          `json:"errors"`
}

// retryable reports whether the failed stage of an unsuccessful run is
// worth retrying (external-service failures are, ordering violations not).
func (r *Result) retryable() bool {
	for _, s := range r.Stages {
		if !s.Success && !s.Skipped && s.Retryable {
			return true
		}
	}
	return false
}

// Status reports orchestrator readiness without side effects.
type Status struct {
	Initialized       bool        `json:"initialized"`
	AgentsReady       bool        `json:"agents_ready"`
	SharedMemoryStats store.Stats `json:"shared_memory_stats"`
}
