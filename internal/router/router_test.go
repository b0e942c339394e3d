package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

func newRouter(t *testing.T) (*Router, *store.Store) {
	t.Helper()
	s := store.New(store.DefaultConfig())
	return New(s, DefaultConfig(), nil), s
}

func sampleWorkflow() *workflow.Graph {
	return &workflow.Graph{
		Name:  "prebuilt",
		Nodes: []workflow.Node{{Name: "Webhook", Type: "n8n-nodes-base.webhook"}},
	}
}

func TestRecommend_Forced(t *testing.T) {
	r, _ := newRouter(t)

	d := r.Recommend(Request{Goal: "x", Workflow: sampleWorkflow(), ForceAgent: true})
	assert.Equal(t, PathAgent, d.SelectedPath)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, "forced", d.Reason)

	d = r.Recommend(Request{Goal: "x", ForceHandler: true})
	assert.Equal(t, PathHandler, d.SelectedPath)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, "forced", d.Reason)
}

func TestRecommend_GoalOnly(t *testing.T) {
	r, _ := newRouter(t)

	d := r.Recommend(Request{Goal: "build me a workflow"})
	assert.Equal(t, PathAgent, d.SelectedPath)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestRecommend_WorkflowOnly(t *testing.T) {
	r, _ := newRouter(t)

	d := r.Recommend(Request{Workflow: sampleWorkflow()})
	assert.Equal(t, PathHandler, d.SelectedPath)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestRecommend_NeitherPresent(t *testing.T) {
	r, _ := newRouter(t)

	d := r.Recommend(Request{})
	assert.Equal(t, PathAgent, d.SelectedPath)
	assert.Less(t, d.Confidence, 0.5, "conservative default must be low confidence")
	assert.Equal(t, "unknown input shape", d.Reason)
}

func TestRecommend_InsufficientHistory(t *testing.T) {
	r, _ := newRouter(t)

	// Only 3 samples for agent, none for handler.
	for i := 0; i < 3; i++ {
		r.Record(PathAgent, true, 100*time.Millisecond, nil)
	}

	d := r.Recommend(Request{Goal: "goal", Workflow: sampleWorkflow()})
	assert.Equal(t, PathAgent, d.SelectedPath)
	assert.Contains(t, d.Reason, "insufficient history")
}

func TestRecommend_HistoryComparison(t *testing.T) {
	r, _ := newRouter(t)

	// agent: 3 successes, 2 failures (rate 0.6)
	for i := 0; i < 3; i++ {
		r.Record(PathAgent, true, 100*time.Millisecond, nil)
	}
	for i := 0; i < 2; i++ {
		r.Record(PathAgent, false, 100*time.Millisecond, nil)
	}
	// handler: 2 successes, 3 failures (rate 0.4)
	for i := 0; i < 2; i++ {
		r.Record(PathHandler, true, 50*time.Millisecond, nil)
	}
	for i := 0; i < 3; i++ {
		r.Record(PathHandler, false, 50*time.Millisecond, nil)
	}

	d := r.Recommend(Request{Goal: "goal", Workflow: sampleWorkflow()})

	assert.Equal(t, PathAgent, d.SelectedPath)
	assert.InDelta(t, 0.2, d.Confidence, 1e-9, "|0.6 - 0.4|")
	assert.Equal(t, PathHandler, d.FallbackPath, "fallback always populated for history decisions")
}

func TestRecommend_HandlerWinsWhenBetter(t *testing.T) {
	r, _ := newRouter(t)

	for i := 0; i < 5; i++ {
		r.Record(PathAgent, false, time.Second, nil)
		r.Record(PathHandler, true, 100*time.Millisecond, nil)
	}

	d := r.Recommend(Request{Goal: "goal", Workflow: sampleWorkflow()})
	assert.Equal(t, PathHandler, d.SelectedPath)
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)
	assert.Equal(t, PathAgent, d.FallbackPath)
}

func TestRecommend_EqualRatesZeroConfidence(t *testing.T) {
	r, _ := newRouter(t)

	for i := 0; i < 5; i++ {
		r.Record(PathAgent, i%2 == 0, time.Millisecond, nil)
		r.Record(PathHandler, i%2 == 0, time.Millisecond, nil)
	}

	d := r.Recommend(Request{Goal: "goal", Workflow: sampleWorkflow()})
	assert.Zero(t, d.Confidence, "equal rates carry no statistical preference")
	assert.NotEmpty(t, d.FallbackPath)
}

func TestRecord_RespectsDecisionWindow(t *testing.T) {
	s := store.New(store.DefaultConfig())
	cfg := DefaultConfig()
	cfg.DecisionWindow = 50 * time.Millisecond
	cfg.MinSamples = 2
	r := New(s, cfg, nil)

	// Old metrics fall outside the decision window but stay retained.
	r.Record(PathAgent, true, time.Millisecond, nil)
	r.Record(PathAgent, true, time.Millisecond, nil)
	r.Record(PathHandler, false, time.Millisecond, nil)
	r.Record(PathHandler, false, time.Millisecond, nil)
	time.Sleep(60 * time.Millisecond)

	d := r.Recommend(Request{Goal: "g", Workflow: sampleWorkflow()})
	assert.Contains(t, d.Reason, "insufficient history",
		"metrics outside the decision window must not count")

	// Statistics still see the retained metrics.
	stats := r.Statistics()
	assert.Equal(t, 2, stats.SamplesByPath[PathAgent])
}

func TestStatistics(t *testing.T) {
	r, _ := newRouter(t)

	r.Record(PathAgent, true, 200*time.Millisecond, nil)
	r.Record(PathAgent, false, 400*time.Millisecond, nil)
	r.Record(PathHandler, true, 100*time.Millisecond, map[string]any{"source": "test"})

	stats := r.Statistics()

	assert.InDelta(t, 0.5, stats.SuccessRateByPath[PathAgent], 1e-9)
	assert.InDelta(t, 1.0, stats.SuccessRateByPath[PathHandler], 1e-9)
	assert.InDelta(t, 300, stats.AvgTimeByPath[PathAgent], 1e-9)
	assert.Equal(t, PathHandler, stats.PreferredPath)
	assert.Equal(t, 2, stats.SamplesByPath[PathAgent])
}

func TestStatistics_Empty(t *testing.T) {
	r, _ := newRouter(t)

	stats := r.Statistics()
	assert.Zero(t, stats.SuccessRateByPath[PathAgent])
	assert.Zero(t, stats.AvgTimeByPath[PathHandler])
	assert.Equal(t, PathAgent, stats.PreferredPath, "deterministic tie-break")
}

func TestClearHistory_OnlyTouchesMetrics(t *testing.T) {
	r, s := newRouter(t)

	r.Record(PathAgent, true, time.Millisecond, nil)
	r.Record(PathHandler, false, time.Millisecond, nil)
	s.Set("selected-pattern:req", "unrelated", "pattern-agent", time.Minute)

	removed := r.ClearHistory()
	assert.Equal(t, 2, removed)

	_, ok := s.Get("selected-pattern:req")
	assert.True(t, ok, "non-metric keys must survive")
	assert.Zero(t, r.Statistics().SamplesByPath[PathAgent])
}

func TestRecord_UniqueKeys(t *testing.T) {
	r, s := newRouter(t)

	for i := 0; i < 50; i++ {
		r.Record(PathAgent, true, time.Millisecond, nil)
	}

	entries := s.Query("execution-metric:agent:*", 0)
	require.Len(t, entries, 50, "every recorded metric must get its own key")
}

func TestNew_ConfigDefaults(t *testing.T) {
	s := store.New(store.DefaultConfig())

	r := New(s, Config{}, nil)
	assert.Equal(t, DefaultConfig().MinSamples, r.cfg.MinSamples)
	assert.Equal(t, DefaultConfig().DecisionWindow, r.cfg.DecisionWindow)

	// Retention can never undercut the decision window.
	r = New(s, Config{DecisionWindow: 48 * time.Hour, RetentionWindow: time.Hour}, nil)
	assert.GreaterOrEqual(t, r.cfg.RetentionWindow, r.cfg.DecisionWindow)
}
