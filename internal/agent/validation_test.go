package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// failingValidator simulates the external validation service being down.
type failingValidator struct{}

func (failingValidator) Validate(ctx context.Context, g *workflow.Graph) (*workflow.Verdict, error) {
	return nil, fmt.Errorf("validation service unreachable")
}

func newValidationFixture(t *testing.T) (*ValidationAgent, *store.Store) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	s := store.New(store.DefaultConfig())
	return NewValidationAgent(workflow.NewStructuralValidator(cat, nil), s, nil), s
}

func seedGraph(s *store.Store, requestID string, g *workflow.Graph) {
	s.Set(StageKey(KeyGeneratedWorkflow, requestID), g, "test", time.Minute)
}

func triggerAndSlack() *workflow.Graph {
	return &workflow.Graph{
		Name: "Slack Notification",
		Nodes: []workflow.Node{
			{Name: "Manual Trigger", Type: "n8n-nodes-base.manualTrigger"},
			{Name: "Slack", Type: "n8n-nodes-base.slack"},
		},
		Connections: map[string]workflow.ConnectionSet{
			"Manual Trigger": {Main: [][]workflow.Connection{{{Node: "Slack", Type: "main", Index: 0}}}},
		},
	}
}

func TestValidationAgent_ValidWorkflow(t *testing.T) {
	a, s := newValidationFixture(t)
	require.NoError(t, a.Initialize())
	seedGraph(s, "req-1", triggerAndSlack())

	res := a.Execute(context.Background(), Request{RequestID: "req-1"})

	require.True(t, res.Success)
	verdict, ok := res.Data.(*workflow.Verdict)
	require.True(t, ok)
	assert.True(t, verdict.Valid)

	stored, ok := store.GetAs[*workflow.Verdict](s, StageKey(KeyValidationResult, "req-1"))
	require.True(t, ok)
	assert.True(t, stored.Valid)
}

func TestValidationAgent_DoesNotMutateWorkflow(t *testing.T) {
	a, s := newValidationFixture(t)
	g := triggerAndSlack()
	seedGraph(s, "req-1", g)

	before := len(g.Nodes)
	beforeConns := g.ConnectionCount()

	res := a.Execute(context.Background(), Request{RequestID: "req-1"})
	require.True(t, res.Success)

	assert.Equal(t, before, len(g.Nodes))
	assert.Equal(t, beforeConns, g.ConnectionCount())
}

func TestValidationAgent_MissingWorkflowFails(t *testing.T) {
	a, _ := newValidationFixture(t)

	res := a.Execute(context.Background(), Request{RequestID: "req-none"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no workflow available")
	assert.False(t, res.Retryable)
}

func TestValidationAgent_ServiceFailureIsRetryable(t *testing.T) {
	s := store.New(store.DefaultConfig())
	a := NewValidationAgent(failingValidator{}, s, nil)
	seedGraph(s, "req-1", triggerAndSlack())

	res := a.Execute(context.Background(), Request{RequestID: "req-1"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "validation service error")
	assert.True(t, res.Retryable, "external-service failures are retryable")
}

func TestValidationAgent_InvalidWorkflowStillSucceeds(t *testing.T) {
	a, s := newValidationFixture(t)

	g := triggerAndSlack()
	g.Connections["Manual Trigger"] = workflow.ConnectionSet{
		Main: [][]workflow.Connection{{{Node: "Ghost", Type: "main", Index: 0}}},
	}
	seedGraph(s, "req-1", g)

	res := a.Execute(context.Background(), Request{RequestID: "req-1"})

	// The stage succeeds; the verdict carries the bad news.
	require.True(t, res.Success)
	verdict := res.Data.(*workflow.Verdict)
	assert.False(t, verdict.Valid)
}

func TestValidationAgent_InitializeRequiresValidator(t *testing.T) {
	s := store.New(store.DefaultConfig())
	a := NewValidationAgent(nil, s, nil)
	assert.Error(t, a.Initialize())
}
