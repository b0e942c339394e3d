// Package agent defines the pipeline stage contract and the three concrete
// stages: pattern discovery, workflow synthesis, and structural validation.
//
// Agents are stateless between calls; all coordination happens through the
// shared store under request-scoped keys. Failures are encoded in the Result
// envelope and never escape Execute as a panic.
package agent

import (
	"context"
	"errors"
	"time"
)

// Well-known store key prefixes. Keys are namespaced per request so
// concurrent orchestrations cannot corrupt each other's intermediate state.
const (
	KeySelectedPattern   = "selected-pattern"
	KeyGeneratedWorkflow = "generated-workflow"
	KeyValidationResult  = "workflow-validation-result"
)

// StageKey builds the store key for a stage output. An empty requestID
// yields the bare prefix, preserving the legacy single-flight layout.
func StageKey(prefix, requestID string) string {
	if requestID == "" {
		return prefix
	}
	return prefix + ":" + requestID
}

// StageTTL is how long intermediate stage outputs stay readable. Long enough
// for any downstream stage or debugging read, short enough to bound memory.
const StageTTL = 30 * time.Minute

// Request is the input to a stage execution.
type Request struct {
	// Goal is the natural-language objective. May be empty; stages degrade
	// to low-confidence results rather than failing.
	Goal string `json:"goal"`

	// Context carries optional caller-supplied hints.
	Context map[string]any `json:"context,omitempty"`

	// RequestID namespaces store keys for this orchestration.
	RequestID string `json:"request_id"`
}

// Result is the uniform envelope every stage produces.
type Result struct {
	Success         bool   `json:"success"`
	Data            any    `json:"data,omitempty"`
	Error           string `json:"error,omitempty"`
	Retryable       bool   `json:"retryable,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	TokensUsed      int    `json:"tokens_used"`
}

// Agent is the lifecycle contract every pipeline stage implements.
type Agent interface {
	// Name identifies the stage (e.g. "pattern-discovery").
	Name() string

	// Initialize prepares agent-local resources. Idempotent.
	Initialize() error

	// Execute runs the stage. All failure modes are encoded in the Result;
	// Execute never panics past this boundary.
	Execute(ctx context.Context, req Request) Result

	// Shutdown releases agent-local resources.
	Shutdown() error
}

// PatternMatch is the pattern discovery output consumed by synthesis.
type PatternMatch struct {
	PatternID       string   `json:"pattern_id"`
	PatternName     string   `json:"pattern_name"`
	Description     string   `json:"description"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	SuggestedNodes  []string `json:"suggested_nodes"`
}

// failure builds a failed Result with timing filled in.
func failure(start time.Time, err string, retryable bool) Result {
	return Result{
		Success:         false,
		Error:           err,
		Retryable:       retryable,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

// deadlineResult converts a context error into a stage failure so a slow or
// cancelled stage reports a timeout instead of hanging the orchestrator.
func deadlineResult(start time.Time, err error) Result {
	msg := "stage cancelled: " + err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "stage timed out: " + err.Error()
	}
	return failure(start, msg, true)
}

// estimateTokens approximates token usage for metrics. Stages here are
// deterministic, so this is a character-based estimate of the text a
// language-model-backed implementation would have consumed.
func estimateTokens(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += (len(t) + 3) / 4
	}
	return total
}
