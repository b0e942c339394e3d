// Package router implements the smart execution router: given a request
// shape it picks between the full agent pipeline and the direct handler
// path, consulting historical execution outcomes kept in the shared store.
package router

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Path is one of the two processing alternatives.
type Path string

const (
	// PathAgent routes through the full three-stage pipeline.
	PathAgent Path = "agent"
	// PathHandler routes to direct execution of a pre-built workflow.
	PathHandler Path = "handler"
)

// metricKeyPrefix namespaces execution metrics in the shared store.
const metricKeyPrefix = "execution-metric"

const ownerRouter = "router"

// lowConfidence is used for conservative defaults where no evidence exists.
const lowConfidence = 0.1

// ExecutionMetric is one recorded outcome of a routed execution.
type ExecutionMetric struct {
	Path            Path           `json:"path"`
	Success         bool           `json:"success"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Context         map[string]any `json:"context,omitempty"`
	RecordedAt      time.Time      `json:"recorded_at"`
}

// Request is the shape the router classifies.
type Request struct {
	Goal         string
	Workflow     *workflow.Graph
	ForceAgent   bool
	ForceHandler bool
}

// Decision is a routing recommendation. FallbackPath is populated whenever
// there is a meaningful alternative to retry on failure.
type Decision struct {
	SelectedPath Path    `json:"selected_path"`
	Confidence   float64 `json:"confidence"`
	FallbackPath Path    `json:"fallback_path,omitempty"`
	Reason       string  `json:"reason"`
}

// PathStats summarizes recorded outcomes for one path.
type PathStats struct {
	Samples     int     `json:"samples"`
	SuccessRate float64 `json:"success_rate"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
}

// Statistics is the observability view over recorded metrics.
type Statistics struct {
	SuccessRateByPath map[Path]float64 `json:"success_rate_by_path"`
	AvgTimeByPath     map[Path]float64 `json:"avg_time_by_path"`
	SamplesByPath     map[Path]int     `json:"samples_by_path"`
	PreferredPath     Path             `json:"preferred_path"`
}

// Config tunes the router's evidence windows.
type Config struct {
	// DecisionWindow is how far back Recommend looks at metrics.
	DecisionWindow time.Duration

	// RetentionWindow is how long metrics stay stored. Enforced via entry
	// TTL, so pruning is lazy and can never drop records still inside the
	// decision window.
	RetentionWindow time.Duration

	// MinSamples is the per-path sample count required before the router
	// trusts a success-rate comparison.
	MinSamples int
}

// DefaultConfig returns the production defaults: 7 day decisions over 30
// days of retained history, at least 5 samples per path.
func DefaultConfig() Config {
	return Config{
		DecisionWindow:  7 * 24 * time.Hour,
		RetentionWindow: 30 * 24 * time.Hour,
		MinSamples:      5,
	}
}

// Router decides execution paths from historical evidence.
type Router struct {
	store  *store.Store
	cfg    Config
	logger *zap.Logger
}

// New creates a router over the given store.
func New(s *store.Store, cfg Config, logger *zap.Logger) *Router {
	if cfg.DecisionWindow <= 0 {
		cfg.DecisionWindow = DefaultConfig().DecisionWindow
	}
	if cfg.RetentionWindow < cfg.DecisionWindow {
		cfg.RetentionWindow = DefaultConfig().RetentionWindow
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{store: s, cfg: cfg, logger: logger.Named("router")}
}

// Recommend classifies the request and returns a routing decision.
func (r *Router) Recommend(req Request) Decision {
	// Forced paths short-circuit everything else.
	if req.ForceAgent {
		return Decision{SelectedPath: PathAgent, Confidence: 1.0, Reason: "forced"}
	}
	if req.ForceHandler {
		return Decision{SelectedPath: PathHandler, Confidence: 1.0, Reason: "forced"}
	}

	hasGoal := req.Goal != ""
	hasWorkflow := req.Workflow != nil

	switch {
	case hasGoal && !hasWorkflow:
		return Decision{
			SelectedPath: PathAgent,
			Confidence:   1.0,
			Reason:       "goal only: agent pipeline is the only path that can synthesize a workflow",
		}
	case !hasGoal && hasWorkflow:
		return Decision{
			SelectedPath: PathHandler,
			Confidence:   1.0,
			Reason:       "workflow only: direct handler path operates on complete workflows",
		}
	case !hasGoal && !hasWorkflow:
		return Decision{
			SelectedPath: PathAgent,
			Confidence:   lowConfidence,
			FallbackPath: PathHandler,
			Reason:       "unknown input shape",
		}
	}

	return r.recommendFromHistory()
}

// recommendFromHistory compares success rates within the decision window.
func (r *Router) recommendFromHistory() Decision {
	agentStats := r.pathStats(PathAgent, r.cfg.DecisionWindow)
	handlerStats := r.pathStats(PathHandler, r.cfg.DecisionWindow)

	if agentStats.Samples < r.cfg.MinSamples || handlerStats.Samples < r.cfg.MinSamples {
		return Decision{
			SelectedPath: PathAgent,
			Confidence:   lowConfidence,
			FallbackPath: PathHandler,
			Reason: fmt.Sprintf("insufficient history: need %d samples per path, have agent=%d handler=%d",
				r.cfg.MinSamples, agentStats.Samples, handlerStats.Samples),
		}
	}

	selected, fallback := PathAgent, PathHandler
	if handlerStats.SuccessRate > agentStats.SuccessRate {
		selected, fallback = PathHandler, PathAgent
	}

	diff := agentStats.SuccessRate - handlerStats.SuccessRate
	if diff < 0 {
		diff = -diff
	}

	decision := Decision{
		SelectedPath: selected,
		Confidence:   diff,
		FallbackPath: fallback,
		Reason: fmt.Sprintf("historical success rate: agent=%.2f (%d samples), handler=%.2f (%d samples)",
			agentStats.SuccessRate, agentStats.Samples,
			handlerStats.SuccessRate, handlerStats.Samples),
	}

	r.logger.Debug("routing decision from history",
		zap.String("selected", string(decision.SelectedPath)),
		zap.Float64("confidence", decision.Confidence))

	return decision
}

// Record appends an execution outcome. The entry's TTL is the retention
// window, so expired metrics disappear lazily without a separate pruner.
func (r *Router) Record(path Path, success bool, executionTime time.Duration, context map[string]any) {
	metric := ExecutionMetric{
		Path:            path,
		Success:         success,
		ExecutionTimeMs: executionTime.Milliseconds(),
		Context:         context,
		RecordedAt:      time.Now(),
	}

	key := fmt.Sprintf("%s:%s:%d:%s", metricKeyPrefix, path, metric.RecordedAt.UnixNano(), uuid.NewString()[:8])
	r.store.Set(key, metric, ownerRouter, r.cfg.RetentionWindow)
}

// pathStats aggregates metrics for one path within maxAge.
func (r *Router) pathStats(path Path, maxAge time.Duration) PathStats {
	entries := r.store.Query(fmt.Sprintf("%s:%s:*", metricKeyPrefix, path), maxAge)

	stats := PathStats{}
	var totalMs int64
	successes := 0
	for _, e := range entries {
		metric, ok := e.Value.(ExecutionMetric)
		if !ok {
			continue
		}
		stats.Samples++
		totalMs += metric.ExecutionTimeMs
		if metric.Success {
			successes++
		}
	}
	if stats.Samples > 0 {
		stats.SuccessRate = float64(successes) / float64(stats.Samples)
		stats.AvgTimeMs = float64(totalMs) / float64(stats.Samples)
	}
	return stats
}

// Statistics reports per-path success rates and timings over the full
// retention window.
func (r *Router) Statistics() Statistics {
	agentStats := r.pathStats(PathAgent, 0)
	handlerStats := r.pathStats(PathHandler, 0)

	preferred := PathAgent
	if handlerStats.SuccessRate > agentStats.SuccessRate {
		preferred = PathHandler
	}

	return Statistics{
		SuccessRateByPath: map[Path]float64{
			PathAgent:   agentStats.SuccessRate,
			PathHandler: handlerStats.SuccessRate,
		},
		AvgTimeByPath: map[Path]float64{
			PathAgent:   agentStats.AvgTimeMs,
			PathHandler: handlerStats.AvgTimeMs,
		},
		SamplesByPath: map[Path]int{
			PathAgent:   agentStats.Samples,
			PathHandler: handlerStats.Samples,
		},
		PreferredPath: preferred,
	}
}

// ClearHistory removes all execution metrics, and nothing else, from the
// shared store. Returns the number of entries removed.
func (r *Router) ClearHistory() int {
	removed := r.store.DeleteMatching(metricKeyPrefix + ":*")
	r.logger.Debug("cleared routing history", zap.Int("removed", removed))
	return removed
}

// Cleanup evicts expired metrics eagerly. Optional; TTL expiry already
// guarantees retention semantics.
func (r *Router) Cleanup() int {
	return r.store.Sweep()
}
